package trackrequest

import "strings"

// formatMarkers and bitrateMarkers are the ordered marker lists the ranking
// contract is defined over. Position in the list is the rank; a marker
// earlier in the list always outranks one later in it.
var formatMarkers = []string{"FLAC", "MP3", "ALAC", "AAC"}
var bitrateMarkers = []string{"lossless", "320 kbps", "256 kbps"}

const unmatchedRank = 10

// RankedCandidate pairs a raw title with the priority Rank computed for it.
// Lower Priority sorts first.
type RankedCandidate struct {
	Title    string
	Seeds    int
	Category string
	Priority int
}

// Rank computes the composite priority for one candidate: bitrate
// dominates format in the lexicographic sense by construction of the
// weights (10 vs 5), and seeds break remaining ties.
func Rank(title string, seeds int) int {
	return formatRank(title)*5 + bitrateRank(title)*10 + seedRank(seeds)
}

func formatRank(title string) int {
	for i, marker := range formatMarkers {
		if strings.Contains(title, marker) {
			return i
		}
	}
	return unmatchedRank
}

func bitrateRank(title string) int {
	for i, marker := range bitrateMarkers {
		if strings.Contains(title, marker) {
			return i
		}
	}
	return unmatchedRank
}

func seedRank(seeds int) int {
	switch {
	case seeds >= 30:
		return 0
	case seeds >= 20:
		return 1
	case seeds >= 10:
		return 2
	case seeds >= 1:
		return 3
	default:
		return 10
	}
}

// Eligible reports whether a raw search result row should be considered at
// all: image+cue releases are discarded outright, and only categories
// marked lossless-adjacent ("loss" substring, covering both "lossless" and
// "lossy" tracker category labels) are retained.
func Eligible(title, category string) bool {
	if strings.Contains(title, "image+.cue") {
		return false
	}
	return strings.Contains(category, "loss")
}
