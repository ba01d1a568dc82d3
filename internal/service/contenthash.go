package service

import "github.com/cespare/xxhash/v2"

// ContentHash computes the 64-bit non-cryptographic hash used to decide
// whether a rescrape's freshly fetched content differs from what was
// previously stored. xxh64 is sufficient here: the only failure mode that
// matters is a false negative (a missed rescrape), which is tolerated at
// the configured scrape-frequency cadence.
func ContentHash(text string) uint64 {
	return xxhash.Sum64String(text)
}
