package trackrequest

import "testing"

func TestRank(t *testing.T) {
	tests := []struct {
		name  string
		title string
		seeds int
		want  int
	}{
		{"flac lossless high seeds", "Artist - Album [FLAC lossless]", 50, 0*5 + 0*10 + 0},
		{"mp3 320 low seeds", "Artist - Album [MP3 320 kbps]", 5, 1*5 + 1*10 + 3},
		{"unmatched format and bitrate", "Artist - Album", 0, unmatchedRank*5 + unmatchedRank*10 + unmatchedRank},
		{"alac beats aac", "Album [ALAC]", 0, 2*5 + unmatchedRank*10 + unmatchedRank},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rank(tt.title, tt.seeds); got != tt.want {
				t.Errorf("Rank(%q, %d) = %d, want %d", tt.title, tt.seeds, got, tt.want)
			}
		})
	}
}

func TestRankLowerIsBetter(t *testing.T) {
	better := Rank("Album [FLAC lossless]", 100)
	worse := Rank("Album [MP3 256 kbps]", 1)
	if better >= worse {
		t.Errorf("expected FLAC/lossless/high-seed candidate to rank lower (better) than MP3/256/low-seed, got better=%d worse=%d", better, worse)
	}
}

func TestSeedRank(t *testing.T) {
	tests := []struct {
		seeds int
		want  int
	}{
		{0, 10},
		{1, 3},
		{9, 3},
		{10, 2},
		{19, 2},
		{20, 1},
		{29, 1},
		{30, 0},
		{1000, 0},
	}
	for _, tt := range tests {
		if got := seedRank(tt.seeds); got != tt.want {
			t.Errorf("seedRank(%d) = %d, want %d", tt.seeds, got, tt.want)
		}
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		category string
		want     bool
	}{
		{"lossless category accepted", "Some Album [FLAC]", "music/lossless", true},
		{"lossy category accepted", "Some Album [MP3]", "music/lossy", true},
		{"non-loss category rejected", "Some Album [FLAC]", "music/video", false},
		{"image+cue discarded regardless of category", "Some Album image+.cue [FLAC lossless]", "music/lossless", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.title, tt.category); got != tt.want {
				t.Errorf("Eligible(%q, %q) = %v, want %v", tt.title, tt.category, got, tt.want)
			}
		})
	}
}
