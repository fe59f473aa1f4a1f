package model

import "time"

// PriceRows is the raw result of a price query.
type PriceRows struct {
	Columns []string
	Rows    [][]any
}

// NewsItem is one stored headline, optionally scored by similarity.
type NewsItem struct {
	Headline string
	Date     time.Time
	Score    float64
}
