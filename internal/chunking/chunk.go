package chunking

// Chunk is one bounded, contiguous slice of an input's duration. Chunks from
// a single plan strictly partition [0, duration): each starts where the
// previous one ended and the final chunk ends at the full duration.
type Chunk struct {
	// Index is the chunk's position in the original input order.
	Index int `json:"index"`
	// Start and End are offsets in seconds within the full input.
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Source is the media file the chunk was planned from.
	Source string `json:"source"`
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}
