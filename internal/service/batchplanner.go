package service

// EmbeddingTokenCap is the per-request embedding-API token ceiling.
const EmbeddingTokenCap = 300_000

// PlanBatches groups chunks into dispatch batches whose summed token count
// stays at or under cap, preserving input order. A single chunk whose own
// token count exceeds cap is emitted alone, as its own batch.
//
// Greedy, order-preserving:
//  1. for each incoming chunk c:
//     a. if c.TokenCount > cap: flush current (if non-empty); emit [c] alone.
//     b. else if sum+c.TokenCount > cap: flush current; start a new one with c.
//     c. else: append c to current.
//  2. flush the residual current.
func PlanBatches(chunks []TextChunk, cap int) [][]TextChunk {
	var batches [][]TextChunk
	var current []TextChunk
	sum := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			sum = 0
		}
	}

	for _, c := range chunks {
		switch {
		case c.TokenCount > cap:
			flush()
			batches = append(batches, []TextChunk{c})
		case sum+c.TokenCount > cap:
			flush()
			current = append(current, c)
			sum = c.TokenCount
		default:
			current = append(current, c)
			sum += c.TokenCount
		}
	}
	flush()

	return batches
}
