package domain

// CanonicalIntent is the fixed set of user-text classifications the
// intent resolver produces.
type CanonicalIntent string

const (
	IntentObserveScreen    CanonicalIntent = "OBSERVE_SCREEN"
	IntentMarketAnalysis   CanonicalIntent = "MARKET_ANALYSIS"
	IntentMarketScan       CanonicalIntent = "MARKET_SCAN"
	IntentFollowup         CanonicalIntent = "FOLLOWUP"
	IntentAction           CanonicalIntent = "ACTION"
	IntentActionComposite  CanonicalIntent = "ACTION_COMPOSITE"
	IntentGreeting         CanonicalIntent = "GREETING"
	IntentUnknown          CanonicalIntent = "UNKNOWN"
)

// DialogueState is the minimal conversational memory the intent
// resolver consults for FOLLOWUP resolution. It is pure data; the
// resolver is a pure function of (text, DialogueState).
type DialogueState struct {
	LastObservation string
	LastIntent      CanonicalIntent
	LastResponse    string
	History         []string
}

// ClassifiedIntent is the resolver's output: the canonical intent plus
// the (possibly rewritten) text to route downstream.
type ClassifiedIntent struct {
	Intent         CanonicalIntent
	NormalizedText string
}
