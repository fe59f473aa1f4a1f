package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteFlags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    RouteFlags
		wantErr bool
	}{
		{"plain", `{"need_sql": true, "need_news": false}`, RouteFlags{NeedSQL: true}, false},
		{"json fence", "```json\n{\"need_sql\": false, \"need_news\": true}\n```", RouteFlags{NeedNews: true}, false},
		{"bare fence", "```\n{\"need_sql\": true, \"need_news\": true}\n```", RouteFlags{NeedSQL: true, NeedNews: true}, false},
		{"prose around", "Sure! {\"need_sql\": true, \"need_news\": false} hope that helps", RouteFlags{NeedSQL: true}, false},
		{"string booleans", `{"need_sql": "true", "need_news": "False"}`, RouteFlags{NeedSQL: true}, false},
		{"missing key", `{"need_news": true}`, RouteFlags{NeedNews: true}, false},
		{"not json", "I think you want prices", RouteFlags{}, true},
		{"broken json", `{"need_sql": tru`, RouteFlags{}, true},
		{"wrong type", `{"need_sql": 3, "need_news": false}`, RouteFlags{}, true},
		{"empty", "   ", RouteFlags{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRouteFlags(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRouteFlags_TooLarge(t *testing.T) {
	_, err := ParseRouteFlags(strings.Repeat("x", maxContentLen+1))
	require.Error(t, err)
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"sql fence", "Here you go:\n```sql\nSELECT close FROM stock_data;\n```", "SELECT close FROM stock_data;", false},
		{"upper fence tag", "```SQL\nSELECT 1\n```", "SELECT 1", false},
		{"bare fence", "```\nSELECT open FROM stock_data\n```", "SELECT open FROM stock_data", false},
		{"no fence", "  SELECT high FROM stock_data  ", "SELECT high FROM stock_data", false},
		{"stray backticks", "`sql SELECT low FROM stock_data`", "SELECT low FROM stock_data", false},
		{"empty fence", "```sql\n```", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSQL(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
