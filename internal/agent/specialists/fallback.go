package specialists

import (
	"context"

	"github.com/cloudwego/eino/compose"
)

// FallbackText is the redirect returned for questions outside prices and news.
const FallbackText = "I'm not sure I can help with that. " +
	"Try asking about stock prices, for example \"AAPL close on 2025-06-16\", " +
	"or company news such as \"Tesla news\"."

// FallbackSpecialist has no collaborator and always succeeds.
type FallbackSpecialist struct{}

var _ Specialist = FallbackSpecialist{}

func (FallbackSpecialist) Name() string { return NameFallback }

func (FallbackSpecialist) Run(context.Context, Request, ...compose.Option) (string, error) {
	return FallbackText, nil
}
