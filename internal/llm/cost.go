package llm

import (
	"strings"
	"unicode/utf8"
)

// ImageTokens is the flat input charge of one inline image (Gemini bills
// images up to 384px per side at 258 tokens).
const ImageTokens = 258

// price is USD per million tokens.
type price struct {
	in, out float64
}

var prices = map[string]price{
	"gemini-2.5-pro":        {1.25, 10.00},
	"gemini-2.5-flash":      {0.30, 2.50},
	"gemini-2.5-flash-lite": {0.10, 0.40},
	"gemini-2.0-flash":      {0.10, 0.40},
	"gemini-2.0-flash-lite": {0.075, 0.30},
	"gpt-4o":                {2.50, 10.00},
	"gpt-4o-mini":           {0.15, 0.60},
	"gpt-4.1":               {2.00, 8.00},
	"gpt-4.1-mini":          {0.40, 1.60},
}

// lookupPrice resolves a model name the way providers report it:
// "models/gemini-2.5-flash" and dated or numbered variants such as
// "gemini-2.5-flash-001" price as their base model. The longest known
// prefix wins, so "gemini-2.5-flash-lite-001" is not priced as flash.
func lookupPrice(model string) (price, bool) {
	model = strings.TrimPrefix(strings.ToLower(model), "models/")
	if p, ok := prices[model]; ok {
		return p, true
	}
	best := ""
	for name := range prices {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return price{}, false
	}
	return prices[best], true
}

// EstimateCost returns the estimated cost in USD, or 0 for unpriced models
// (including every Ollama model).
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := lookupPrice(model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.in + float64(outputTokens)*p.out) / 1e6
}

// EstimateTokens approximates the token count of text at four characters
// per token, never returning 0 for non-empty text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n > 0 && n < 4 {
		return 1
	}
	return n / 4
}

// EstimateRequestTokens approximates the input tokens of req, counting
// every message and ImageTokens per image.
func EstimateRequestTokens(req CompletionRequest) int {
	total := 0
	for _, m := range req.Messages {
		total += EstimateTokens(m.Content) + len(m.Images)*ImageTokens
	}
	return total
}
