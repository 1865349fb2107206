// Package dialogue turns recipe progress and conversation history into the
// flat prompt text sent to the language model. Nothing here fails or
// performs I/O.
package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rknm-cell/mise/backend/internal/model/voice"
)

// HistoryWindow is the number of past messages rendered into a prompt.
const HistoryWindow = 10

// RecipeContext carries whatever the caller knows about the current recipe.
// Zero values are omitted from the prompt.
type RecipeContext struct {
	RecipeName             string
	RecipeDescription      string
	CurrentStep            int
	TotalSteps             int
	CurrentStepDescription string
	CompletedSteps         []int
}

const assistantIntro = "You are Mise, a friendly cooking assistant helping someone cook in their kitchen."

const assistantGuidelines = `Guidelines:
- Keep responses concise and easy to follow while cooking.
- Be encouraging and supportive.
- Give practical, actionable advice.
- If asked about timing, give specific durations.
- If asked about substitutions, suggest common alternatives with ratios.
- Keep responses under 150 words.`

// BuildSystemPrompt renders the instruction prompt for rc.
func BuildSystemPrompt(rc RecipeContext) string {
	var b strings.Builder
	b.WriteString(assistantIntro)

	var ctx []string
	if name := strings.TrimSpace(rc.RecipeName); name != "" {
		ctx = append(ctx, "Recipe: "+name)
	}
	if desc := strings.TrimSpace(rc.RecipeDescription); desc != "" {
		ctx = append(ctx, "Description: "+desc)
	}
	if rc.CurrentStep > 0 {
		if rc.TotalSteps > 0 {
			ctx = append(ctx, fmt.Sprintf("Current step: %d of %d", rc.CurrentStep, rc.TotalSteps))
		} else {
			ctx = append(ctx, fmt.Sprintf("Current step: %d", rc.CurrentStep))
		}
	}
	if desc := strings.TrimSpace(rc.CurrentStepDescription); desc != "" {
		ctx = append(ctx, "Current step instructions: "+desc)
	}
	if steps := voice.NormalizeSteps(rc.CompletedSteps); len(steps) > 0 {
		ctx = append(ctx, "Completed steps: "+joinInts(steps))
	}

	if len(ctx) > 0 {
		b.WriteString("\n\nCooking context:\n")
		b.WriteString(strings.Join(ctx, "\n"))
	}

	b.WriteString("\n\n")
	b.WriteString(assistantGuidelines)
	return b.String()
}

// BuildConversationContext renders the tail of history followed by the
// current message. Without history the message is returned unchanged.
func BuildConversationContext(history []voice.Message, currentMessage string) string {
	if len(history) == 0 {
		return currentMessage
	}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	var b strings.Builder
	for _, msg := range history {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}
	b.WriteString("User: ")
	b.WriteString(currentMessage)
	return b.String()
}

const suggestionsSystem = "You are a cooking instructor. Give short, practical tips for the step the cook is working on. Reply with one tip per line and nothing else."

// SuggestionsPrompt returns the system and user prompts asking for 3-4 tips
// on stepDescription. experienceLevel defaults to "beginner".
func SuggestionsPrompt(stepDescription, experienceLevel string) (system, user string) {
	if strings.TrimSpace(experienceLevel) == "" {
		experienceLevel = "beginner"
	}
	user = fmt.Sprintf("Give 3-4 helpful tips for a %s cook working on this step:\n%s",
		experienceLevel, strings.TrimSpace(stepDescription))
	return suggestionsSystem, user
}

const substitutionsSystem = "You are a cooking expert. Suggest ingredient substitutions with the ratio to use. Reply with one substitution per line and nothing else."

// SubstitutionsPrompt returns the system and user prompts asking for 3-4
// alternatives to ingredient, optionally in the context of a recipe.
func SubstitutionsPrompt(ingredient, recipeContext string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest 3-4 substitutions for %s", strings.TrimSpace(ingredient))
	if rc := strings.TrimSpace(recipeContext); rc != "" {
		fmt.Fprintf(&b, " in %s", rc)
	}
	b.WriteString(". Include the ratio for each.")
	return substitutionsSystem, b.String()
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
