package activity

import "time"

const (
	patternWindowSize   = 20
	patternMinSamples   = 5
	patternMaxDominance = 0.8
	patternMinDistinct  = 3
	keystrokeCooldown   = 5 * time.Second
)

// Rejection reasons reported by the keystroke pipeline.
const (
	rejectDuplicate = "duplicate"
	rejectDebounce  = "debounce"
	rejectLookback  = "lookback"
	rejectSpam      = "spam"
	rejectCooldown  = "cooldown"
)

// SpamClassifier decides whether an accepted key press counts as genuine
// activity. A press must look like varied typing and must arrive at least
// one cooldown after the previously credited press.
type SpamClassifier struct {
	window     *RingBuffer[string]
	cooldown   time.Duration
	lastCredit time.Time
}

// NewSpamClassifier creates a classifier with a 20 entry pattern window
// and a 5 second cooldown.
func NewSpamClassifier() *SpamClassifier {
	return &SpamClassifier{
		window:   NewRingBuffer[string](patternWindowSize),
		cooldown: keystrokeCooldown,
	}
}

// IsValidActivity records keyID in the pattern window and reports whether
// the press may be credited at now.
func (c *SpamClassifier) IsValidActivity(keyID string, now time.Time) bool {
	return c.classify(keyID, now) == ""
}

// classify returns "" when the press is credited, otherwise the reason it
// was rejected. Crediting starts a new cooldown.
func (c *SpamClassifier) classify(keyID string, now time.Time) string {
	c.window.Push(keyID)

	if c.looksLikeSpam() {
		return rejectSpam
	}

	if !c.lastCredit.IsZero() && now.Sub(c.lastCredit) < c.cooldown {
		return rejectCooldown
	}

	c.lastCredit = now
	return ""
}

func (c *SpamClassifier) looksLikeSpam() bool {
	samples := c.window.Items()
	if len(samples) < patternMinSamples {
		return false
	}

	counts := make(map[string]int, len(samples))
	dominant := 0
	for _, k := range samples {
		counts[k]++
		dominant = max(dominant, counts[k])
	}

	share := float64(dominant) / float64(len(samples))
	return share > patternMaxDominance || len(counts) < patternMinDistinct
}

// Reset forgets the pattern window and cooldown.
func (c *SpamClassifier) Reset() {
	c.window.Clear()
	c.lastCredit = time.Time{}
}
