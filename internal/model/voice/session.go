package voice

import (
	"slices"
	"time"
)

// MaxStoredMessages caps the conversation history kept on a session.
const MaxStoredMessages = 50

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn. Messages are never edited after they
// are appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the per-recipe conversational and progress state. Values are
// treated as immutable: every change produces a new Session via Clone.
type Session struct {
	ID                  string    `json:"id"`
	RecipeID            string    `json:"recipeId"`
	CurrentStep         int       `json:"currentStep"`
	CompletedSteps      []int     `json:"completedSteps"`
	ConversationHistory []Message `json:"conversationHistory"`
	WakePhrase          string    `json:"wakePhrase"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	LastActivity        time.Time `json:"lastActivity"`
}

// Clone returns a deep copy that shares no slices with s.
func (s Session) Clone() Session {
	out := s
	out.CompletedSteps = slices.Clone(s.CompletedSteps)
	out.ConversationHistory = slices.Clone(s.ConversationHistory)
	if out.CompletedSteps == nil {
		out.CompletedSteps = []int{}
	}
	if out.ConversationHistory == nil {
		out.ConversationHistory = []Message{}
	}
	return out
}

// HasCompleted reports whether step is in the completed set.
func (s Session) HasCompleted(step int) bool {
	_, found := slices.BinarySearch(s.CompletedSteps, step)
	return found
}

// NormalizeSteps turns steps into a sorted set without duplicates or
// non-positive entries.
func NormalizeSteps(steps []int) []int {
	out := make([]int, 0, len(steps))
	for _, n := range steps {
		if n >= 1 {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
