package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nse-agent/marketagent/internal/domain"
)

func TestClassify_ObserveScreenTrigger(t *testing.T) {
	c := Classify("what do you see on screen", domain.DialogueState{})
	assert.Equal(t, domain.IntentObserveScreen, c.Intent)
}

func TestClassify_EmptyTextIsUnknown(t *testing.T) {
	c := Classify("   ", domain.DialogueState{})
	assert.Equal(t, domain.IntentUnknown, c.Intent)
}

func TestClassify_FollowupRequiresPriorObservation(t *testing.T) {
	withHistory := Classify("now", domain.DialogueState{LastObservation: "chart loaded"})
	assert.Equal(t, domain.IntentFollowup, withHistory.Intent)

	withoutHistory := Classify("now", domain.DialogueState{})
	assert.Equal(t, domain.IntentObserveScreen, withoutHistory.Intent)
	assert.Equal(t, "what do you see now?", withoutHistory.NormalizedText)
}

func TestClassify_MarketScanKeyword(t *testing.T) {
	c := Classify("run a scan on bank nifty", domain.DialogueState{})
	assert.Equal(t, domain.IntentMarketScan, c.Intent)
}

func TestClassify_MarketAnalysisKeywordWithoutTradingOrAction(t *testing.T) {
	c := Classify("analyze the trend and resistance on INFY", domain.DialogueState{})
	assert.Equal(t, domain.IntentMarketAnalysis, c.Intent)
}

func TestClassify_MarketKeywordWithTradingVerbIsNotAnalysis(t *testing.T) {
	c := Classify("buy INFY based on the trend", domain.DialogueState{})
	assert.NotEqual(t, domain.IntentMarketAnalysis, c.Intent)
}

func TestClassify_ActionVerbPrefix(t *testing.T) {
	c := Classify("open the chart", domain.DialogueState{})
	assert.Equal(t, domain.IntentAction, c.Intent)
}

func TestClassify_ActionCompositeOnAndThen(t *testing.T) {
	c := Classify("open the chart and click save", domain.DialogueState{})
	assert.Equal(t, domain.IntentActionComposite, c.Intent)
}

func TestClassify_Greeting(t *testing.T) {
	c := Classify("hello", domain.DialogueState{})
	assert.Equal(t, domain.IntentGreeting, c.Intent)
}

func TestDecompose_MarketAnalysisNeverSplits(t *testing.T) {
	parts := Decompose(domain.IntentMarketAnalysis, "analyze INFY and analyze TCS")
	assert.Equal(t, []string{"analyze INFY and analyze TCS"}, parts)
}

func TestDecompose_MarketScanNeverSplits(t *testing.T) {
	parts := Decompose(domain.IntentMarketScan, "scan bank nifty and nifty 50")
	assert.Equal(t, []string{"scan bank nifty and nifty 50"}, parts)
}

func TestDecompose_SplitsActionOnAnd(t *testing.T) {
	parts := Decompose(domain.IntentActionComposite, "open the chart and click save")
	assert.Equal(t, []string{"open the chart", "click save"}, parts)
}

func TestDecompose_RespectsQuotedSeparators(t *testing.T) {
	parts := Decompose(domain.IntentActionComposite, `type "save and exit" and click save`)
	assert.Equal(t, []string{`type "save and exit"`, "click save"}, parts)
}
