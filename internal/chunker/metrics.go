package chunker

import "math"

// Metrics summarises token counts over a chunk sequence.
type Metrics struct {
	TotalChunks       int `json:"total_chunks"`
	TotalTokens       int `json:"total_tokens"`
	AvgTokensPerChunk int `json:"avg_tokens_per_chunk"`
	MaxTokens         int `json:"max_tokens"`
	MinTokens         int `json:"min_tokens"`
}

// ComputeMetrics reduces chunks to Metrics. It returns ErrEmptyResult when
// there is nothing to average.
func ComputeMetrics(chunks []Chunk) (Metrics, error) {
	if len(chunks) == 0 {
		return Metrics{}, ErrEmptyResult
	}
	m := Metrics{
		TotalChunks: len(chunks),
		MaxTokens:   chunks[0].TokenCount,
		MinTokens:   chunks[0].TokenCount,
	}
	for _, c := range chunks {
		m.TotalTokens += c.TokenCount
		m.MaxTokens = max(m.MaxTokens, c.TokenCount)
		m.MinTokens = min(m.MinTokens, c.TokenCount)
	}
	m.AvgTokensPerChunk = int(math.Round(float64(m.TotalTokens) / float64(len(chunks))))
	return m, nil
}
