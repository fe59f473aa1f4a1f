package specialists

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	errx "github.com/tickertalk/server/internal/core/error"
)

var (
	stringLitRe  = regexp.MustCompile(`'(?:[^']|'')*'`)
	identRe      = regexp.MustCompile(`\b[a-z_][a-z0-9_]*\b`)
	tableRefRe   = regexp.MustCompile(`\b(?:from|join)\s+([a-z_][a-z0-9_.]*)`)
	tableNameRe  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	aliasDeclRe  = regexp.MustCompile(`\bas\s+([a-z_][a-z0-9_]*)`)
	bannedTerms  = []string{"news", "headline", "url", "article", "publisher", "embedding"}
	priceColumns = []string{"ticker", "date", "open", "high", "low", "close", "volume"}
)

var sqlVocabulary = toSet(
	// keywords
	"select", "from", "where", "and", "or", "not", "as", "order", "by", "asc", "desc",
	"limit", "offset", "between", "in", "is", "null", "distinct", "group", "having",
	"on", "join", "inner", "left", "like", "ilike", "case", "when", "then", "else", "end",
	"true", "false", "interval", "cast", "numeric", "over", "partition", "public",
	// functions
	"avg", "min", "max", "sum", "count", "round", "abs", "coalesce", "lag", "lead",
	"extract", "year", "month", "day", "week", "date_trunc", "current_date", "now",
	"upper", "lower", "nulls", "first", "last", "greatest", "least", "nullif",
	"floor", "ceil", "trunc", "stddev", "variance", "row_number", "rank",
	"first_value", "last_value", "quarter", "dow", "epoch", "text", "integer", "bigint",
	// read-only date functions
	"to_date", "to_char", "date_part", "make_date", "age",
)

// QueryValidator rejects generated SQL that could reach past the price table.
type QueryValidator struct {
	table   string
	allowed map[string]struct{}
}

// NewQueryValidator returns a validator scoped to one price table.
func NewQueryValidator(table string) (*QueryValidator, error) {
	table = strings.ToLower(strings.TrimSpace(table))
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid price table name %q", table)
	}
	allowed := toSet(priceColumns...)
	for k := range sqlVocabulary {
		allowed[k] = struct{}{}
	}
	allowed[table] = struct{}{}
	return &QueryValidator{table: table, allowed: allowed}, nil
}

// Validate returns the statement without its trailing semicolon, or a
// QueryRejected error naming the first problem found.
func (v *QueryValidator) Validate(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return "", errx.QueryRejected("empty statement")
	}
	if strings.Contains(stmt, "--") || strings.Contains(stmt, "/*") {
		return "", errx.QueryRejected("comments are not allowed")
	}

	low := strings.ToLower(stmt)
	for _, term := range bannedTerms {
		if strings.Contains(low, term) {
			return "", errx.QueryRejected(fmt.Sprintf("references %q", term))
		}
	}

	// literals may contain anything, identifiers are checked outside them
	bare := stringLitRe.ReplaceAllString(low, "''")
	if strings.Count(bare, "'")%2 != 0 {
		return "", errx.QueryRejected("unterminated string literal")
	}
	if strings.Contains(bare, ";") {
		return "", errx.QueryRejected("multiple statements")
	}
	bare = strings.ReplaceAll(bare, `"`, " ")

	if first := identRe.FindString(bare); first != "select" || !strings.HasPrefix(strings.TrimLeft(bare, "( "), "select") {
		return "", errx.QueryRejected("only SELECT statements are allowed")
	}

	scoped := false
	for _, ref := range tableRefRe.FindAllStringSubmatch(bare, -1) {
		name := strings.TrimPrefix(ref[1], "public.")
		switch {
		case name == v.table:
			scoped = true
		case slices.Contains(priceColumns, name):
			// EXTRACT(field FROM column)
		default:
			return "", errx.QueryRejected(fmt.Sprintf("table %q is not allowed", ref[1]))
		}
	}
	if !scoped {
		return "", errx.QueryRejected("missing FROM " + v.table)
	}

	// names declared with AS may be referenced anywhere in the statement
	aliases := map[string]struct{}{}
	for _, m := range aliasDeclRe.FindAllStringSubmatch(bare, -1) {
		if _, ok := v.allowed[m[1]]; ok {
			continue
		}
		if regexp.MustCompile(`\b` + m[1] + `\s*\(`).MatchString(bare) {
			return "", errx.QueryRejected(fmt.Sprintf("identifier %q is not allowed", m[1]))
		}
		aliases[m[1]] = struct{}{}
	}
	for _, id := range identRe.FindAllString(bare, -1) {
		_, declared := aliases[id]
		if _, ok := v.allowed[id]; !ok && !declared {
			return "", errx.QueryRejected(fmt.Sprintf("identifier %q is not allowed", id))
		}
	}
	return stmt, nil
}

func toSet(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}
