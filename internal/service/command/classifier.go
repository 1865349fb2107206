// Package command classifies wake-phrase voice commands without calling the
// language model. Every function here is pure and never fails: malformed
// input degrades to a general classification.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rknm-cell/mise/backend/internal/model/command"
)

// DefaultDurationSeconds is returned by ParseTimeExpression when no duration
// can be read from the text.
const DefaultDurationSeconds = 300

// MaxDurationSeconds bounds a parsed duration. Longer requests fall back to
// DefaultDurationSeconds.
const MaxDurationSeconds = 24 * 60 * 60

// extractor pulls structured parameters out of a matched command.
type extractor func(text string, match []string) command.Params

// rule is one entry of the ordered classification table.
type rule struct {
	name       string
	pattern    *regexp.Regexp
	actionType command.ActionType
	confidence float64
	extract    extractor
}

var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*(hours|hour|hrs|hr|h|minutes|minute|mins|min|m|seconds|second|secs|sec|s)\b`)

var bareNumberPattern = regexp.MustCompile(`\d+`)

// rules is evaluated top to bottom; the first match wins. Timer sits above
// help so "help me set a timer" is a timer command.
var rules = []rule{
	{
		name:       "timer",
		pattern:    regexp.MustCompile(`(?i)\b(timers?|countdown|alarm|remind me in)\b`),
		actionType: command.ActionTimer,
		confidence: 0.9,
		extract:    extractTimer,
	},
	{
		name:       "next-step",
		pattern:    regexp.MustCompile(`(?i)\b(next step|next|move on|go forward|what'?s next)\b`),
		actionType: command.ActionNavigation,
		confidence: 0.95,
		extract:    fixedDirection(command.DirectionNext),
	},
	{
		name:       "previous-step",
		pattern:    regexp.MustCompile(`(?i)\b(previous step|previous|go back|back up|step back)\b`),
		actionType: command.ActionNavigation,
		confidence: 0.95,
		extract:    fixedDirection(command.DirectionPrevious),
	},
	{
		name:       "specific-step",
		pattern:    regexp.MustCompile(`(?i)\bstep\s+(?:number\s+)?(\d+)\b`),
		actionType: command.ActionNavigation,
		confidence: 0.9,
		extract:    extractStep,
	},
	{
		name:       "modification",
		pattern:    regexp.MustCompile(`(?i)\b(substitute|substitution|replace|swap|instead of|double|halve|triple|scale|adjust|change|don'?t have|out of|without)\b`),
		actionType: command.ActionModification,
		confidence: 0.85,
	},
	{
		name:       "prep",
		pattern:    regexp.MustCompile(`(?i)\b(prep|prepare|chop|dice|mince|slice|peel|cut|mise en place|get ready)\b`),
		actionType: command.ActionPrep,
		confidence: 0.8,
	},
	{
		name:       "timing",
		pattern:    regexp.MustCompile(`(?i)\b(how long|how much time|when should|when do|time left|done yet|ready yet)\b`),
		actionType: command.ActionTiming,
		confidence: 0.8,
	},
	{
		name:       "help",
		pattern:    regexp.MustCompile(`(?i)\b(help|what can you do|commands|assist)\b`),
		actionType: command.ActionHelp,
		confidence: 0.7,
	},
	{
		name:       "technique",
		pattern:    regexp.MustCompile(`(?i)\b(how do i|how to|technique|explain|fold|sear|saute|braise|whisk|knead|blanch|deglaze|temper)\b`),
		actionType: command.ActionTechnique,
		confidence: 0.7,
	},
}

// DetectVoiceCommand reports whether message contains wakePhrase, ignoring
// case. An empty wake phrase never matches.
func DetectVoiceCommand(message, wakePhrase string) bool {
	phrase := strings.TrimSpace(wakePhrase)
	if phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(message), strings.ToLower(phrase))
}

// ExtractCommand strips every occurrence of wakePhrase (any case) from
// message and trims what is left, including separators such as the comma
// in "hey mise, next step".
func ExtractCommand(message, wakePhrase string) string {
	phrase := strings.TrimSpace(wakePhrase)
	if phrase == "" || !DetectVoiceCommand(message, phrase) {
		return strings.TrimSpace(message)
	}

	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
	stripped := re.ReplaceAllString(message, " ")
	stripped = strings.Join(strings.Fields(stripped), " ")
	return strings.TrimLeft(stripped, ",.!?:; ")
}

// ParseVoiceCommand classifies a command that has already had its wake
// phrase removed.
func ParseVoiceCommand(text string) command.Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return general()
	}

	for _, r := range rules {
		match := r.pattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		var params command.Params = command.NoParams{}
		if r.extract != nil {
			params = r.extract(trimmed, match)
		}
		return command.Classification{
			ActionType: r.actionType,
			Confidence: r.confidence,
			Params:     params,
		}
	}
	return general()
}

// ParseTimeExpression converts a spoken duration into seconds. Multiple
// components are summed ("1 hour 30 minutes"). A bare number is read as
// minutes; anything else, or anything above MaxDurationSeconds, yields
// DefaultDurationSeconds.
func ParseTimeExpression(text string) int {
	matches := durationPattern.FindAllStringSubmatch(text, -1)
	total := 0
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		unit := unitSeconds(m[2])
		if err != nil || n > MaxDurationSeconds/unit {
			return DefaultDurationSeconds
		}
		total += n * unit
		if total > MaxDurationSeconds {
			return DefaultDurationSeconds
		}
	}
	if total > 0 {
		return total
	}
	if len(matches) > 0 {
		return DefaultDurationSeconds
	}

	// A bare numeral is read as minutes.
	if raw := bareNumberPattern.FindString(text); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= MaxDurationSeconds/60 {
			return n * 60
		}
	}
	return DefaultDurationSeconds
}

// GenerateVoiceAcknowledgment returns the short phrase spoken back for a
// recognised command. Typed (non-voice) input gets no acknowledgment.
func GenerateVoiceAcknowledgment(actionType command.ActionType, isVoiceCommand bool) string {
	if !isVoiceCommand {
		return ""
	}
	switch actionType {
	case command.ActionTimer:
		return "Setting that timer for you."
	case command.ActionNavigation:
		return "Moving to that step."
	case command.ActionModification:
		return "Let me adjust the recipe."
	case command.ActionPrep, command.ActionTiming:
		return "Let me check that for you."
	case command.ActionHelp, command.ActionTechnique:
		return "Happy to help with that."
	default:
		return "Got it."
	}
}

func general() command.Classification {
	return command.Classification{
		ActionType: command.ActionGeneral,
		Confidence: 0,
		Params:     command.NoParams{},
	}
}

func extractTimer(text string, _ []string) command.Params {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return command.TimerParams{}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return command.TimerParams{}
	}
	return command.TimerParams{Duration: n, Unit: strings.ToLower(m[2])}
}

func extractStep(_ string, match []string) command.Params {
	n, _ := strconv.Atoi(match[1])
	return command.StepParams{Direction: command.DirectionSpecific, StepNumber: n}
}

func fixedDirection(d command.Direction) extractor {
	return func(string, []string) command.Params {
		return command.StepParams{Direction: d}
	}
}

func unitSeconds(unit string) int {
	switch strings.ToLower(unit) {
	case "hours", "hour", "hrs", "hr", "h":
		return 3600
	case "seconds", "second", "secs", "sec", "s":
		return 1
	default:
		return 60
	}
}
