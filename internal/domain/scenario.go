package domain

// MTFMode selects which fixed timeframe set the aggregator pulls.
type MTFMode string

const (
	MTFSwing      MTFMode = "SWING"
	MTFIntraday   MTFMode = "INTRADAY"
	MTFPositional MTFMode = "POSITIONAL"
)

// Alignment is the cross-timeframe trend agreement classification
// produced by the MTF aggregator.
type Alignment string

const (
	AlignmentFull     Alignment = "FULL"
	AlignmentPartial  Alignment = "PARTIAL"
	AlignmentUnstable Alignment = "UNSTABLE"
	AlignmentConflict Alignment = "CONFLICT"
)

// HTFLocation places current price relative to the dominant timeframe's
// support/resistance band.
type HTFLocation string

const (
	HTFResistance HTFLocation = "RESISTANCE"
	HTFSupport    HTFLocation = "SUPPORT"
	HTFMid        HTFLocation = "MID"
	HTFUnknown    HTFLocation = "UNKNOWN"
)

// ActiveState is the scenario the probability engine selects as dominant
// for the current decision cycle.
type ActiveState string

const (
	StateContinuation ActiveState = "CONTINUATION"
	StatePullback     ActiveState = "PULLBACK"
	StateFailure      ActiveState = "FAILURE"
	StateConflict     ActiveState = "CONFLICT_STATE"
)

// ConsistencyFlag is a non-fatal warning raised by the probability
// engine's consistency validator.
type ConsistencyFlag string

const (
	FlagContradiction  ConsistencyFlag = "CONTRADICTION"
	FlagWarning        ConsistencyFlag = "WARNING"
	FlagOverconfidence ConsistencyFlag = "OVERCONFIDENCE"
)

// ProbabilityResult is the deterministic triple produced by the scenario
// probability engine, plus the active state and validation metadata.
type ProbabilityResult struct {
	PContinuation float64
	PPullback     float64
	PFailure      float64
	ActiveState   ActiveState
	Reasoning     map[ActiveState]string
	SumOK         bool
	Flags         []ConsistencyFlag
}

// GateName identifies one of the five execution gates.
type GateName string

const (
	GateAlignment          GateName = "alignment"
	GateDominance          GateName = "dominance"
	GateRegimeRisk         GateName = "regime_risk"
	GateStructuralLocation GateName = "structural_location"
	GateOverconfidence     GateName = "overconfidence"
)

// PermissionStatus is the outcome of the execution gate as a whole.
type PermissionStatus string

const (
	PermissionAllowed PermissionStatus = "ALLOWED"
	PermissionBlocked PermissionStatus = "BLOCKED"
)

// ExecutionPermission carries the gate's overall verdict, valid for
// exactly one decision cycle.
type ExecutionPermission struct {
	Status        PermissionStatus
	Reasons       []string
	ValidFor      string
	ExpiresAfter  string
}

// GateEvaluation is the full output of the five-gate execution
// validator for one decision cycle.
type GateEvaluation struct {
	Symbol      string
	PerGate     map[GateName]bool
	Permission  ExecutionPermission
}

// VerdictLabel is the final discrete output of the verdict composer.
type VerdictLabel string

const (
	VerdictOpportunity VerdictLabel = "OPPORTUNITY"
	VerdictMonitor     VerdictLabel = "MONITOR"
	VerdictCaution     VerdictLabel = "CAUTION"
	VerdictAvoid       VerdictLabel = "AVOID"
)

// Verdict is the human-facing conclusion of one decision cycle.
type Verdict struct {
	Label      VerdictLabel
	Summary    string
	Confidence ConfidenceLevel
}

// RegimeFlag names a market-regime condition the verdict composer
// treats as automatically downgrading to CAUTION.
type RegimeFlag string

const (
	RegimeChange      RegimeFlag = "REGIME_CHANGE"
	EdgeDegradation   RegimeFlag = "EDGE_DEGRADATION"
)

// ComposerActiveState is the narrower active-state vocabulary the
// verdict composer's strict API accepts (CONFLICT_STATE folds into
// REVERSAL at the composer boundary per spec).
type ComposerActiveState string

const (
	ComposerContinuation ComposerActiveState = "CONTINUATION"
	ComposerPullback     ComposerActiveState = "PULLBACK"
	ComposerReversal     ComposerActiveState = "REVERSAL"
)

// GateStatus is the composer's coarse PASS/BLOCKED view of the gate.
type GateStatus string

const (
	GateStatusPass    GateStatus = "PASS"
	GateStatusBlocked GateStatus = "BLOCKED"
)

// TrendState is the composer's coarse UP/DOWN/RANGE view of the
// dominant trend.
type TrendState string

const (
	TrendUp    TrendState = "UP"
	TrendDown  TrendState = "DOWN"
	TrendRange TrendState = "RANGE"
)
