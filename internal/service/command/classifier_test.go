package command

import (
	"testing"

	"github.com/rknm-cell/mise/backend/internal/model/command"
)

func TestDetectVoiceCommand(t *testing.T) {
	tests := []struct {
		message string
		phrase  string
		want    bool
	}{
		{"hey mise, next step", "hey mise", true},
		{"HEY MISE what now", "hey mise", true},
		{"ok so Hey Mise set a timer", "hey mise", true},
		{"next step please", "hey mise", false},
		{"hey mi se", "hey mise", false},
		{"anything", "", false},
	}

	for _, tt := range tests {
		if got := DetectVoiceCommand(tt.message, tt.phrase); got != tt.want {
			t.Errorf("DetectVoiceCommand(%q, %q) = %v, want %v", tt.message, tt.phrase, got, tt.want)
		}
	}
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"hey mise, set a timer for 10 minutes", "set a timer for 10 minutes"},
		{"Hey Mise next step", "next step"},
		{"hey mise what is next hey mise", "what is next"},
		{"  stir the sauce  ", "stir the sauce"},
	}

	for _, tt := range tests {
		if got := ExtractCommand(tt.message, "hey mise"); got != tt.want {
			t.Errorf("ExtractCommand(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestExtractCommandIdempotentWithoutPhrase(t *testing.T) {
	inputs := []string{"stir the sauce", "next step", "set a timer for 5 minutes", ""}
	for _, in := range inputs {
		once := ExtractCommand(in, "hey mise")
		twice := ExtractCommand(once, "hey mise")
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if once != in {
			t.Fatalf("input without phrase changed: %q -> %q", in, once)
		}
	}
}

func TestParseVoiceCommand(t *testing.T) {
	tests := []struct {
		input      string
		wantType   command.ActionType
		wantConf   float64
		wantParams command.Params
	}{
		{"set a timer for 10 minutes", command.ActionTimer, 0.9, command.TimerParams{Duration: 10, Unit: "minutes"}},
		{"help me set a timer for 5 minutes", command.ActionTimer, 0.9, command.TimerParams{Duration: 5, Unit: "minutes"}},
		{"start a timer", command.ActionTimer, 0.9, command.TimerParams{}},
		{"next step", command.ActionNavigation, 0.95, command.StepParams{Direction: command.DirectionNext}},
		{"go back", command.ActionNavigation, 0.95, command.StepParams{Direction: command.DirectionPrevious}},
		{"go to step 4", command.ActionNavigation, 0.9, command.StepParams{Direction: command.DirectionSpecific, StepNumber: 4}},
		{"can I substitute butter", command.ActionModification, 0.85, command.NoParams{}},
		{"how should I chop the onion", command.ActionPrep, 0.8, command.NoParams{}},
		{"how long do I simmer this", command.ActionTiming, 0.8, command.NoParams{}},
		{"help", command.ActionHelp, 0.7, command.NoParams{}},
		{"how do I fold egg whites", command.ActionTechnique, 0.7, command.NoParams{}},
		{"this smells amazing", command.ActionGeneral, 0, command.NoParams{}},
		{"", command.ActionGeneral, 0, command.NoParams{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseVoiceCommand(tt.input)
			if got.ActionType != tt.wantType {
				t.Fatalf("type = %s, want %s", got.ActionType, tt.wantType)
			}
			if got.Confidence != tt.wantConf {
				t.Fatalf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Params != tt.wantParams {
				t.Fatalf("params = %#v, want %#v", got.Params, tt.wantParams)
			}
		})
	}
}

func TestRuleOrder(t *testing.T) {
	want := []string{
		"timer", "next-step", "previous-step", "specific-step",
		"modification", "prep", "timing", "help", "technique",
	}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, name := range want {
		if rules[i].name != name {
			t.Fatalf("rule %d = %s, want %s", i, rules[i].name, name)
		}
	}
}

func TestParseTimeExpression(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"5 minutes", 300},
		{"2 hours", 7200},
		{"30 seconds", 30},
		{"10", 600},
		{"banana", 300},
		{"1 hour 30 minutes", 5400},
		{"45 secs", 45},
		{"3 hrs", 10800},
		{"", DefaultDurationSeconds},
		{"24 hours", MaxDurationSeconds},
		{"25 hours", DefaultDurationSeconds},
		{"9000000000000000 hours", DefaultDurationSeconds},
		{"99999999999999999999 minutes", DefaultDurationSeconds},
		{"9000000000000000", DefaultDurationSeconds},
		{"23 hours 90 minutes", DefaultDurationSeconds},
	}

	for _, tt := range tests {
		if got := ParseTimeExpression(tt.input); got != tt.want {
			t.Errorf("ParseTimeExpression(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestGenerateVoiceAcknowledgment(t *testing.T) {
	if got := GenerateVoiceAcknowledgment(command.ActionTimer, false); got != "" {
		t.Fatalf("expected empty acknowledgment for typed input, got %q", got)
	}
	for _, at := range []command.ActionType{
		command.ActionTimer, command.ActionNavigation, command.ActionModification,
		command.ActionPrep, command.ActionTiming, command.ActionHelp,
		command.ActionTechnique, command.ActionGeneral,
	} {
		if GenerateVoiceAcknowledgment(at, true) == "" {
			t.Errorf("expected acknowledgment for %s", at)
		}
	}
}

func TestWakePhrasePipeline(t *testing.T) {
	msg := "hey mise, set a timer for 10 minutes"
	if !DetectVoiceCommand(msg, "hey mise") {
		t.Fatal("expected wake phrase to be detected")
	}
	cmd := ExtractCommand(msg, "hey mise")
	if cmd != "set a timer for 10 minutes" {
		t.Fatalf("unexpected command %q", cmd)
	}
	result := ParseVoiceCommand(cmd)
	params, ok := result.Params.(command.TimerParams)
	if result.ActionType != command.ActionTimer || !ok {
		t.Fatalf("expected timer classification, got %#v", result)
	}
	if params.Duration != 10 || params.Unit != "minutes" {
		t.Fatalf("unexpected params %#v", params)
	}
	if secs := ParseTimeExpression("10 minutes"); secs != 600 {
		t.Fatalf("expected 600 seconds, got %d", secs)
	}
}

func TestLastStepQuestionDoesNotNavigate(t *testing.T) {
	for _, text := range []string{"is this the last step?", "what was the last step"} {
		if got := ParseVoiceCommand(text); got.ActionType == command.ActionNavigation {
			t.Errorf("ParseVoiceCommand(%q) = navigation, want a non-navigation intent", text)
		}
	}
}
