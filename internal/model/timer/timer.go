package timer

import "time"

// Timer is a live countdown owned by the timer registry. It only exists
// while running; stopping a timer removes it.
type Timer struct {
	ID          string    `json:"id"`
	Duration    int       `json:"duration"`
	Description string    `json:"description"`
	Stage       string    `json:"stage"`
	RecipeID    string    `json:"recipeId,omitempty"`
	StepNumber  *int      `json:"stepNumber,omitempty"`
	IsRunning   bool      `json:"isRunning"`
	StartTime   time.Time `json:"startTime"`
	TimeLeft    int       `json:"timeLeft"`
}
