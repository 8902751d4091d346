// Package tokens estimates how many model tokens a span of text consumes.
//
// The default Heuristic estimator divides the rune count by a fixed
// chars-per-token ratio. It is an approximation and must never be reported
// as an exact count. Tiktoken substitutes real BPE counts where an encoding
// is known for the tokenizer name.
package tokens

import "unicode/utf8"

// DefaultTokenizer is used when a caller does not name a tokenizer.
const DefaultTokenizer = "cl100k"

const (
	BackendHeuristic = "heuristic"
	BackendTiktoken  = "tiktoken"
)

// Ratios are in tenths of a character; the ceiling division is integer only.
const defaultTenthCharsPerToken = 40

var tenthCharsPerToken = map[string]int{
	"claude": 38,
}

// Estimator maps a span of text to an estimated token count.
type Estimator interface {
	EstimateTokens(text, tokenizer string) int
}

// New returns the estimator for a configured backend name. Unknown backends
// fall back to the heuristic.
func New(backend string) Estimator {
	switch backend {
	case BackendTiktoken:
		return NewTiktoken()
	default:
		return Heuristic{}
	}
}

// CharsPerToken reports the ratio the heuristic applies for a tokenizer name.
func CharsPerToken(tokenizer string) float64 {
	return float64(ratio(tokenizer)) / 10
}

func ratio(tokenizer string) int {
	if r, ok := tenthCharsPerToken[tokenizer]; ok {
		return r
	}
	return defaultTenthCharsPerToken
}

// Heuristic estimates ceil(runes / charsPerToken).
type Heuristic struct{}

func (Heuristic) EstimateTokens(text, tokenizer string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	r := ratio(tokenizer)
	return (n*10 + r - 1) / r
}
