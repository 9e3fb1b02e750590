package crawler

// Auto-tuner thresholds on |matches_to_download|.
const (
	tunerGrowThreshold   = 1000
	tunerShrinkThreshold = 1500
)

// tunerState is the previous tick's sample, compared against the
// current tick to detect whether the match queue is growing.
type tunerState struct {
	totalDownloadedPlayers int
	matchesQueued          int
	haveSample             bool
}

// tunerDecision is what the auto-tuner concluded this tick.
type tunerDecision int

const (
	tunerHold tunerDecision = iota
	tunerGrow
	tunerShrink
)

// decide picks this tick's action: grow when the match queue is small
// and not growing, shrink when it is large and growing.
func (st *tunerState) decide(totalDownloadedPlayers, matchesQueued int) tunerDecision {
	growing := st.haveSample && matchesQueued > st.matchesQueued

	decision := tunerHold
	switch {
	case matchesQueued < tunerGrowThreshold && !growing:
		decision = tunerGrow
	case matchesQueued > tunerShrinkThreshold && growing:
		decision = tunerShrink
	}

	st.totalDownloadedPlayers = totalDownloadedPlayers
	st.matchesQueued = matchesQueued
	st.haveSample = true
	return decision
}
