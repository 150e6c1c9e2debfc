package providers

// ModelPricing holds per-token prices in USD per 1 million tokens.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// PricingTable maps "provider/model" keys to pricing data for the chat
// models named in the router's model registry. Prices are in USD per
// 1 million tokens (as listed on public pricing pages) and are best-effort;
// unknown keys price at zero rather than fail the request.
var PricingTable = map[string]ModelPricing{
	// OpenAI
	"openai/gpt-4o":      {InputPer1M: 2.50, OutputPer1M: 10.00},
	"openai/gpt-4o-mini": {InputPer1M: 0.15, OutputPer1M: 0.60},
	"openai/o1-preview":  {InputPer1M: 15.00, OutputPer1M: 60.00},

	// Anthropic
	"anthropic/claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"anthropic/claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},

	// DeepSeek
	"deepseek/deepseek-reasoner": {InputPer1M: 0.55, OutputPer1M: 2.19},
	"deepseek/deepseek-chat":     {InputPer1M: 0.14, OutputPer1M: 0.28},

	// Google Gemini
	"google/gemini-1.5-pro": {InputPer1M: 1.25, OutputPer1M: 5.00},

	// Groq
	"groq/llama-3.3-70b": {InputPer1M: 0.59, OutputPer1M: 0.79},

	// Mistral
	"mistral/mistral-large-latest": {InputPer1M: 2.00, OutputPer1M: 6.00},

	// AWS Bedrock — reachable only via policy override_models, see router.
	"bedrock/anthropic.claude-3-5-sonnet-20241022-v2:0": {InputPer1M: 3.00, OutputPer1M: 15.00},
}

// EstimateCost returns the estimated cost in USD for a completed response.
// It looks up pricing by "provider/model" key and falls back to zero if
// the model is not in the pricing table.
func EstimateCost(provider, model string, usage Usage) float64 {
	key := provider + "/" + model
	p, ok := PricingTable[key]
	if !ok {
		return 0
	}
	inputCost := float64(usage.PromptTokens) / 1_000_000 * p.InputPer1M
	outputCost := float64(usage.CompletionTokens) / 1_000_000 * p.OutputPer1M
	return inputCost + outputCost
}
