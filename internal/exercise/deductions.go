package exercise

// IssueCode names a detectable form deviation. Codes are stable
// identifiers; display text lives with the UI layer's localization.
type IssueCode string

const (
	IssueLowVisibility   IssueCode = "visibility:low"
	IssueShallowDepth    IssueCode = "depth:shallow"
	IssueBackRounded     IssueCode = "back:rounded"
	IssueKneeValgus      IssueCode = "knee:valgus"
	IssueKneeOverToe     IssueCode = "knee:over_toe"
	IssueAsymmetry       IssueCode = "symmetry:uneven"
	IssueTempoFast       IssueCode = "tempo:fast"
	IssueHipsSagging     IssueCode = "hips:sagging"
	IssueHipsPiking      IssueCode = "hips:piking"
	IssueElbowFlare      IssueCode = "elbow:flare"
	IssueIncompleteRange IssueCode = "range:incomplete"
)

// Deduction is the scoring weight and feedback copy for one issue code.
type Deduction struct {
	Priority   Priority
	Points     float64
	Message    string
	Suggestion string
}

// deductionTable is the single source of truth for per-issue score
// deductions across all exercises. Keeping the weights in one table keeps
// relative severities comparable between exercises and testable in one
// place.
var deductionTable = map[IssueCode]Deduction{
	IssueLowVisibility: {
		Priority:   PriorityCritical,
		Points:     100,
		Message:    "Key joints are not visible",
		Suggestion: "Step back so your full body is in frame",
	},
	IssueBackRounded: {
		Priority:   PriorityCritical,
		Points:     30,
		Message:    "Back is rounding",
		Suggestion: "Keep your chest up and spine neutral",
	},
	IssueKneeValgus: {
		Priority:   PriorityHigh,
		Points:     25,
		Message:    "Knees are caving inward",
		Suggestion: "Push your knees out over your toes",
	},
	IssueHipsSagging: {
		Priority:   PriorityHigh,
		Points:     25,
		Message:    "Hips are sagging",
		Suggestion: "Squeeze your glutes and brace your core",
	},
	IssueKneeOverToe: {
		Priority:   PriorityHigh,
		Points:     20,
		Message:    "Front knee is tracking past the toes",
		Suggestion: "Shift your weight back through the heel",
	},
	IssueShallowDepth: {
		Priority:   PriorityMedium,
		Points:     15,
		Message:    "Not reaching full depth",
		Suggestion: "Lower until thighs are parallel to the ground",
	},
	IssueHipsPiking: {
		Priority:   PriorityMedium,
		Points:     15,
		Message:    "Hips are piking upward",
		Suggestion: "Lower your hips into a straight line",
	},
	IssueElbowFlare: {
		Priority:   PriorityMedium,
		Points:     15,
		Message:    "Elbows are flaring out",
		Suggestion: "Tuck your elbows closer to your body",
	},
	IssueIncompleteRange: {
		Priority:   PriorityMedium,
		Points:     10,
		Message:    "Not completing the full range of motion",
		Suggestion: "Extend fully at the top of each rep",
	},
	IssueAsymmetry: {
		Priority:   PriorityLow,
		Points:     10,
		Message:    "Left and right sides are uneven",
		Suggestion: "Distribute your weight evenly on both sides",
	},
	IssueTempoFast: {
		Priority:   PriorityLow,
		Points:     5,
		Message:    "Moving too quickly",
		Suggestion: "Slow down and control the descent",
	},
}

// DeductionFor returns the deduction entry for a code.
func DeductionFor(code IssueCode) (Deduction, bool) {
	d, ok := deductionTable[code]
	return d, ok
}

// newIssue materializes an Issue from the deduction table. Unknown codes
// fall back to a low-priority zero-point entry so a missing table row
// degrades visibly in output instead of panicking mid-session.
func newIssue(code IssueCode) Issue {
	d, ok := deductionTable[code]
	if !ok {
		return Issue{Code: code, Priority: PriorityLow}
	}
	return Issue{
		Code:       code,
		Priority:   d.Priority,
		Points:     d.Points,
		Message:    d.Message,
		Suggestion: d.Suggestion,
	}
}
