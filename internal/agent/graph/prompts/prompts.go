package prompts

import (
	_ "embed"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Template variable names shared by the chains that format these prompts.
const (
	VarQuery   = "query"
	VarTable   = "table"
	VarTicker  = "ticker"
	VarDate    = "date"
	VarStock   = "stock"
	VarNews    = "news"
	VarHistory = "history"
)

// Placeholders rendered when a specialist produced nothing for the turn.
const (
	NoStockData = "No stock info found."
	NoNewsData  = "No news found."
)

var (
	//go:embed template/router_prompt.txt
	routerSystemPrompt string

	//go:embed template/sql_prompt.txt
	sqlSystemPrompt string

	//go:embed template/synth_prompt.txt
	synthSystemPrompt string
)

// Router builds the intent classification prompt. Expects VarQuery.
func Router() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(routerSystemPrompt),
		schema.UserMessage(`Question: "{{.query}}"`),
	)
}

// SQL builds the price query generation prompt.
// Expects VarTable, VarTicker, VarDate (may be empty) and VarQuery.
func SQL() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(sqlSystemPrompt),
		schema.UserMessage("Now answer: {{.query}}"),
	)
}

// Synth builds the final answer prompt. Expects VarQuery, VarStock, VarNews
// and, optionally, VarHistory with the prior turns.
func Synth() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(synthSystemPrompt),
		schema.MessagesPlaceholder(VarHistory, true),
		schema.UserMessage("User question: {{.query}}\n\nStock data returned:\n{{.stock}}\n\nNews data returned (markdown):\n{{.news}}"),
	)
}
