package chat

import "github.com/rknm-cell/mise/backend/internal/model/voice"

// ContextTag marks replies produced by the cooking assistant.
const ContextTag = "cooking_assistant"

// QuickActions are the fixed shortcut labels returned with every reply.
var QuickActions = []string{"Set a timer", "Next step", "Repeat step", "Ingredient substitutions"}

// TurnRequest is one user turn plus whatever recipe context the client has.
type TurnRequest struct {
	Message                string          `json:"message"`
	RecipeID               string          `json:"recipeId,omitempty"`
	RecipeName             string          `json:"recipeName,omitempty"`
	RecipeDescription      string          `json:"recipeDescription,omitempty"`
	CurrentStep            int             `json:"currentStep,omitempty"`
	TotalSteps             int             `json:"totalSteps,omitempty"`
	CurrentStepDescription string          `json:"currentStepDescription,omitempty"`
	CompletedSteps         []int           `json:"completedSteps,omitempty"`
	ConversationHistory    []voice.Message `json:"conversationHistory,omitempty"`
}

// TurnResponse is the reply envelope. Tool actions are optional.
type TurnResponse struct {
	Response           string              `json:"response"`
	Suggestions        []string            `json:"suggestions,omitempty"`
	QuickActions       []string            `json:"quickActions,omitempty"`
	Context            string              `json:"context,omitempty"`
	TimerAction        *TimerAction        `json:"timerAction,omitempty"`
	NavigationAction   *NavigationAction   `json:"navigationAction,omitempty"`
	ModificationAction *ModificationAction `json:"modificationAction,omitempty"`
	PrepWorkAction     *PrepWorkAction     `json:"prepWorkAction,omitempty"`
	TimingAction       *TimingAction       `json:"timingAction,omitempty"`
}

// TimerAction asks the client to create a timer. Duration is in seconds.
type TimerAction struct {
	Action      string `json:"action"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
	Reason      string `json:"reason"`
}

// Navigation directions.
const (
	NavigateNext     = "next"
	NavigatePrevious = "previous"
	NavigateSpecific = "specific"
)

// NavigationAction moves the current step.
type NavigationAction struct {
	Action     string `json:"action"`
	StepNumber int    `json:"stepNumber,omitempty"`
	Reason     string `json:"reason"`
}

// ModificationAction changes an ingredient, quantity or instruction.
type ModificationAction struct {
	Type     string `json:"type"`
	Target   string `json:"target"`
	NewValue string `json:"newValue"`
	Reason   string `json:"reason"`
}

// PrepWorkAction lists preparation tasks.
type PrepWorkAction struct {
	Action string   `json:"action"`
	Tasks  []string `json:"tasks"`
	Reason string   `json:"reason"`
}

// TimingAction carries timing guidance.
type TimingAction struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// SuggestionsRequest asks for tips on a step.
type SuggestionsRequest struct {
	CurrentStepDescription string `json:"currentStepDescription"`
	UserExperienceLevel    string `json:"userExperienceLevel,omitempty"`
}

// SuggestionsResponse lists tips, one per entry.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// SubstitutionsRequest asks for alternatives to an ingredient.
type SubstitutionsRequest struct {
	Ingredient    string `json:"ingredient"`
	RecipeContext string `json:"recipeContext,omitempty"`
}

// SubstitutionsResponse lists alternatives, one per entry.
type SubstitutionsResponse struct {
	Substitutions []string `json:"substitutions"`
}
