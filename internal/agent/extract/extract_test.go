package extract

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbols_Ticker(t *testing.T) {
	syms := DefaultSymbols()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"explicit symbol", "What was AAPL's close on 2025-06-16?", "AAPL"},
		{"alias", "Tesla news", "TSLA"},
		{"alias is case insensitive", "any updates on MICROSOFT?", "MSFT"},
		{"sigil wins over alias", "apple vs $NVDA today", "NVDA"},
		{"lowercase sigil", "price of $tsla", "TSLA"},
		{"unknown sigil falls through", "$ZZZZ and tesla", "TSLA"},
		{"first alias in text order", "compare amazon and google", "AMZN"},
		{"lowercase symbol is not a ticker", "amzn price", ""},
		{"uppercase symbol before later alias", "AMZN or google?", "AMZN"},
		{"alias needs word boundary", "pineapple prices", ""},
		{"bare uppercase lenient", "How did IBM do?", "IBM"},
		{"skips single letter words", "I want A quote for XYZ", "XYZ"},
		{"nothing", "what's the weather", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, syms.Ticker(tt.text))
		})
	}
}

func TestSymbols_WithKnown(t *testing.T) {
	base := DefaultSymbols()
	extended := base.WithKnown("pltr", "IBM")

	assert.False(t, base.Known("PLTR"))
	assert.True(t, extended.Known("PLTR"))
	assert.Equal(t, "PLTR", extended.Ticker("news for $PLTR"))
	assert.Equal(t, "PLTR", extended.Ticker("is PLTR up"))
	assert.Empty(t, extended.Ticker("is pltr up"))
	assert.Equal(t, "TSLA", extended.Ticker("tesla"))
}

func TestSymbols_WithKnown_EnglishWordTickers(t *testing.T) {
	syms := DefaultSymbols().WithKnown("ON", "LOW", "NOW", "ALL", "IT", "TSLA", "AAPL")

	tests := []struct {
		text string
		want string
	}{
		{"Any news on Tesla?", "TSLA"},
		{"What was the high and low of AAPL on 2025-06-16?", "AAPL"},
		{"show me all apple headlines", "AAPL"},
		{"is it up now?", ""},
		{"news on $ON", "ON"},
		{"how did ON close?", "ON"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, syms.Ticker(tt.text))
		})
	}
}

func TestSymbols_ZeroValue(t *testing.T) {
	var syms Symbols
	assert.Equal(t, "XOM", syms.Ticker("news on XOM"))
	assert.Empty(t, syms.Ticker("tesla"))
}

func TestSymbols_ConcurrentReads(t *testing.T) {
	syms := DefaultSymbols()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "GOOGL", syms.Ticker("alphabet headlines"))
		}()
	}
	wg.Wait()
}

func TestDate(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"close on 2025-06-16?", "2025-06-16"},
		{"open on 06/11/2025", "2025-06-11"},
		{"open on 6/1/25", "2025-06-01"},
		{"first 1/2/2024 then 2025-01-01", "2024-01-02"},
		{"not a date 13/45/2025", ""},
		{"no date here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.text))
		})
	}
}

func TestNormalizeDates(t *testing.T) {
	assert.Equal(t, "MSFT open on 2025-06-11 and 2024-12-31", NormalizeDates("MSFT open on 06/11/2025 and 12/31/24"))
	assert.Equal(t, "ratio 2/30/2025 stays", NormalizeDates("ratio 2/30/2025 stays"))
	assert.Equal(t, "nothing to do", NormalizeDates("nothing to do"))
}

func TestResolveThatDay(t *testing.T) {
	assert.Equal(t, "news on 2025-06-16 for TSLA", ResolveThatDay("news on That Day for TSLA", "2025-06-16"))
	assert.Equal(t, "what about that day", ResolveThatDay("what about that day", ""))
}
