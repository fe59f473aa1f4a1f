package specialists

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tickertalk/server/internal/agent/graph/parsers"
	"github.com/tickertalk/server/internal/agent/graph/prompts"
	"github.com/tickertalk/server/internal/agent/model"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

// PriceSpecialist asks a chat model for SQL, validates it locally and runs it
// against the price store.
type PriceSpecialist struct {
	store     PriceStore
	validator *QueryValidator
	table     string
	runnable  compose.Runnable[map[string]any, string]
}

var _ Specialist = (*PriceSpecialist)(nil)

func NewPriceSpecialist(ctx context.Context, cm einomodel.BaseChatModel, store PriceStore, cfg model.PriceConfig) (*PriceSpecialist, error) {
	if cm == nil {
		return nil, fmt.Errorf("price specialist: chat model is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("price specialist: store is nil")
	}
	validator, err := NewQueryValidator(cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("price specialist: %w", err)
	}

	runnable, err := compose.NewChain[map[string]any, string]().
		AppendChatTemplate(prompts.SQL()).
		AppendChatModel(cm).
		AppendLambda(compose.InvokableLambda(func(_ context.Context, msg *schema.Message) (string, error) {
			if msg == nil {
				return "", fmt.Errorf("nil sql completion")
			}
			return msg.Content, nil
		})).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile sql chain: %w", err)
	}

	return &PriceSpecialist{
		store:     store,
		validator: validator,
		table:     validator.table,
		runnable:  runnable,
	}, nil
}

func (p *PriceSpecialist) Name() string { return NamePrice }

func (p *PriceSpecialist) Run(ctx context.Context, req Request, opts ...compose.Option) (string, error) {
	if req.Ticker == "" {
		return "", errx.TickerUnresolved()
	}

	completion, err := p.runnable.Invoke(ctx, map[string]any{
		prompts.VarTable:  p.table,
		prompts.VarTicker: req.Ticker,
		prompts.VarDate:   req.Date,
		prompts.VarQuery:  req.Query,
	}, opts...)
	if err != nil {
		return "", errx.WrapCompletion(err)
	}

	raw, err := parsers.ExtractSQL(completion)
	if err != nil {
		return "", errx.QueryRejected(err.Error())
	}
	stmt, err := p.validator.Validate(raw)
	if err != nil {
		logx.Warn().Err(err).Str("specialist", NamePrice).Str("sql", raw).Msg("generated query rejected")
		return "", err
	}
	logx.Debug().Str("specialist", NamePrice).Str("sql", stmt).Msg("running price query")

	rows, err := p.store.QueryPrices(ctx, stmt)
	if err != nil {
		return "", err
	}
	return FormatPrices(req.Ticker, req.Date, rows), nil
}

// FormatPrices renders a header line followed by one line per row.
// Numeric values are rounded to two decimals.
func FormatPrices(ticker, date string, rows model.PriceRows) string {
	if date == "" {
		date = "latest available date"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s", ticker, date)
	if len(rows.Rows) == 0 {
		b.WriteString("\nno rows found")
		return b.String()
	}
	for _, row := range rows.Rows {
		parts := make([]string, 0, len(row))
		for i, v := range row {
			col := fmt.Sprintf("col%d", i+1)
			if i < len(rows.Columns) {
				col = rows.Columns[i]
			}
			parts = append(parts, col+": "+formatValue(v))
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.Format("2006-01-02")
	case []byte:
		return formatValue(string(x))
	case string:
		if strings.Contains(x, ".") {
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return strconv.FormatFloat(f, 'f', 2, 64)
			}
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}
