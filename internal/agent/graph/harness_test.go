package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/server/internal/agent/extract"
	"github.com/tickertalk/server/internal/agent/graph/nodes"
	"github.com/tickertalk/server/internal/agent/graph/prompts"
	"github.com/tickertalk/server/internal/agent/intent"
	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	"github.com/tickertalk/server/internal/testutil"
)

const validSQL = "```sql\nSELECT close FROM stock_data WHERE ticker = 'AAPL' AND date = '2025-06-16';\n```"

type fakePriceStore struct {
	mu    sync.Mutex
	calls int
}

func (f *fakePriceStore) QueryPrices(context.Context, string) (model.PriceRows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return model.PriceRows{Columns: []string{"close"}, Rows: [][]any{{196.4512}}}, nil
}

type fakeNewsIndex struct {
	mu       sync.Mutex
	lastText string
}

func (f *fakeNewsIndex) Recent(_ context.Context, ticker string, _ int) ([]model.NewsItem, error) {
	return []model.NewsItem{
		{Headline: ticker + " beats delivery estimates", Date: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func (f *fakeNewsIndex) Similar(_ context.Context, text, ticker string, _ int) ([]model.NewsItem, error) {
	f.mu.Lock()
	f.lastText = text
	f.mu.Unlock()
	return []model.NewsItem{
		{Headline: ticker + " unveils new product", Date: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), Score: 0.87},
	}, nil
}

// recorder wraps a specialist and logs the order of runs.
type recorder struct {
	specialists.Specialist
	mu    *sync.Mutex
	order *[]string
	calls int
}

func (r *recorder) Run(ctx context.Context, req specialists.Request, opts ...compose.Option) (string, error) {
	r.mu.Lock()
	r.calls++
	*r.order = append(*r.order, r.Name())
	r.mu.Unlock()
	return r.Specialist.Run(ctx, req, opts...)
}

type funcSpecialist struct {
	name string
	run  func(ctx context.Context, req specialists.Request) (string, error)
}

func (f funcSpecialist) Name() string { return f.name }

func (f funcSpecialist) Run(ctx context.Context, req specialists.Request, _ ...compose.Option) (string, error) {
	return f.run(ctx, req)
}

// fakeSynth turns the stock and news blocks of the synth prompt into an
// answer shaped like the real one.
func fakeSynth() *testutil.ChatModel {
	return testutil.NewChatModel(func(_ context.Context, msgs []*schema.Message) (string, error) {
		last := msgs[len(msgs)-1].Content
		stockStart := strings.Index(last, "Stock data returned:\n") + len("Stock data returned:\n")
		newsMarker := "\n\nNews data returned (markdown):\n"
		newsStart := strings.Index(last, newsMarker)
		stock := last[stockStart:newsStart]
		news := last[newsStart+len(newsMarker):]

		var b strings.Builder
		if stock != prompts.NoStockData {
			lines := strings.Split(stock, "\n")
			header := strings.SplitN(lines[0], " on ", 2)
			field := strings.SplitN(lines[1], ": ", 2)
			fmt.Fprintf(&b, "%s %s on %s → %s", header[0], field[0], header[1], field[1])
		}
		if news != prompts.NoNewsData {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString("### Latest headlines\n")
			b.WriteString(news)
		}
		return b.String(), nil
	})
}

type harness struct {
	router     *testutil.ChatModel
	sqlModel   *testutil.ChatModel
	synthModel *testutil.ChatModel
	store      *fakePriceStore
	index      *fakeNewsIndex
	price      *recorder
	news       *recorder
	fallback   *recorder
	order      []string
	metrics    *Metrics

	maxDispatches int
	callTimeout   time.Duration
	priceOverride specialists.Specialist

	orch *Orchestrator
}

func newHarness() *harness {
	return &harness{
		router:     testutil.Fixed(`{"need_sql": false, "need_news": false}`),
		sqlModel:   testutil.Fixed(validSQL),
		synthModel: fakeSynth(),
		store:      &fakePriceStore{},
		index:      &fakeNewsIndex{},
		metrics:    NewMetrics(prometheus.NewRegistry()),
	}
}

func (h *harness) build(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	classifier, err := intent.NewClassifier(ctx, h.router)
	require.NoError(t, err)

	var price specialists.Specialist
	if h.priceOverride != nil {
		price = h.priceOverride
	} else {
		price, err = specialists.NewPriceSpecialist(ctx, h.sqlModel, h.store, model.PriceConfig{Table: "stock_data"})
		require.NoError(t, err)
	}
	news, err := specialists.NewNewsSpecialist(h.index, model.NewsConfig{RecentLimit: 5, SimilarK: 5})
	require.NoError(t, err)

	mu := &sync.Mutex{}
	h.price = &recorder{Specialist: price, mu: mu, order: &h.order}
	h.news = &recorder{Specialist: news, mu: mu, order: &h.order}
	h.fallback = &recorder{Specialist: specialists.FallbackSpecialist{}, mu: mu, order: &h.order}

	dispatcher, err := nodes.NewDispatcher(h.price, h.news, h.fallback, h.callTimeout)
	require.NoError(t, err)
	synth, err := nodes.NewSynthesizer(ctx, h.synthModel, 20, h.callTimeout)
	require.NoError(t, err)

	h.orch, err = NewOrchestrator(OrchestratorConfig{
		Symbols:       extract.DefaultSymbols(),
		Classifier:    classifier,
		Dispatcher:    dispatcher,
		Synthesizer:   synth,
		Metrics:       h.metrics,
		MaxDispatches: h.maxDispatches,
		CallTimeout:   h.callTimeout,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) turn(query string, memory *model.TurnState) model.TurnResult {
	return h.orch.HandleTurn(context.Background(), query, memory)
}
