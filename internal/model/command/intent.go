package command

// ActionType is the classified purpose of a voice command.
type ActionType string

const (
	ActionTimer        ActionType = "timer"
	ActionNavigation   ActionType = "navigation"
	ActionModification ActionType = "modification"
	ActionPrep         ActionType = "prep"
	ActionTiming       ActionType = "timing"
	ActionHelp         ActionType = "help"
	ActionTechnique    ActionType = "technique"
	ActionGeneral      ActionType = "general"
)

// Direction of a navigation command.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
	DirectionSpecific Direction = "specific"
)

// Params is the parameter payload extracted for a classification. The set of
// implementations is closed: TimerParams, StepParams and NoParams.
type Params interface {
	params()
}

// TimerParams holds the raw duration expression of a timer command. Unit is
// kept as spoken ("minutes", "hr"); conversion happens downstream.
type TimerParams struct {
	Duration int    `json:"duration"`
	Unit     string `json:"unit"`
}

// StepParams holds a navigation target. StepNumber is only set for
// DirectionSpecific.
type StepParams struct {
	Direction  Direction `json:"direction"`
	StepNumber int       `json:"stepNumber,omitempty"`
}

// NoParams marks classifications without structured extraction.
type NoParams struct{}

func (TimerParams) params() {}
func (StepParams) params()  {}
func (NoParams) params()    {}

// Classification is the ephemeral result of classifying a command.
type Classification struct {
	ActionType ActionType `json:"actionType"`
	Confidence float64    `json:"confidence"`
	Params     Params     `json:"extractedData"`
}

// Actionable reports whether the classification is a concrete command with
// at least the given confidence. General input is never actionable.
func (c Classification) Actionable(threshold float64) bool {
	return c.ActionType != ActionGeneral && c.Confidence >= threshold
}
