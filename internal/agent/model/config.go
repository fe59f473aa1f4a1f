package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL           time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	MaxDispatches int           `envconfig:"CONVERSATION_MAX_DISPATCHES" default:"4"`
	CallTimeout   time.Duration `envconfig:"CONVERSATION_CALL_TIMEOUT" default:"30s"`
	HistoryWindow int           `envconfig:"CONVERSATION_HISTORY_WINDOW" default:"20"`
}

type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0"`
}

type SQLModelConfig struct {
	Model       string  `envconfig:"SQL_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SQL_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"SQL_TEMPERATURE" default:"0"`
}

type SynthModelConfig struct {
	Model       string  `envconfig:"SYNTH_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SYNTH_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"SYNTH_TEMPERATURE" default:"0.2"`
}

type EmbeddingConfig struct {
	BaseURL   string        `envconfig:"EMBED_BASE_URL" default:"http://localhost:11434"`
	Model     string        `envconfig:"EMBED_MODEL" default:"nomic-embed-text"`
	CacheSize int           `envconfig:"EMBED_CACHE_SIZE" default:"512"`
	Timeout   time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
}

type PriceConfig struct {
	Table string `envconfig:"PRICE_TABLE" default:"stock_data"`
}

type NewsConfig struct {
	Table       string `envconfig:"NEWS_TABLE" default:"news_articles"`
	RecentLimit int    `envconfig:"NEWS_RECENT_LIMIT" default:"5"`
	SimilarK    int    `envconfig:"NEWS_SIMILAR_K" default:"5"`
}
