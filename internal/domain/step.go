package domain

import "strings"

// Step labels the consultation stage. It is informational: nothing sent to
// the provider depends on it.
type Step string

const (
	StepFunctionSelection     Step = "function_selection"
	StepSubFunctionSelection  Step = "sub_function_selection"
	StepInformationCollection Step = "information_collection"
	StepConfirmation          Step = "confirmation"
	StepAnalysis              Step = "analysis"
	StepFinalOutput           Step = "final_output"
	StepFollowUp              Step = "follow_up"
)

// Steps lists the stages in protocol order.
var Steps = []Step{
	StepFunctionSelection,
	StepSubFunctionSelection,
	StepInformationCollection,
	StepConfirmation,
	StepAnalysis,
	StepFinalOutput,
	StepFollowUp,
}

const (
	confirmationMarker = "confirm if my understanding is correct"
	advisoryNoteMarker = "BUSINESS ADVISORY NOTE"
)

func (s Step) rank() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known stages.
func (s Step) Valid() bool { return s.rank() >= 0 }

// NextStep derives the stage after a successful exchange from the number of
// answers given so far and the model's latest reply. Stages never move
// backwards.
func NextStep(current Step, answers int, reply string) Step {
	var next Step
	switch {
	case current == StepFinalOutput || current == StepFollowUp:
		next = StepFollowUp
	case strings.Contains(strings.ToUpper(reply), advisoryNoteMarker):
		next = StepFinalOutput
	case strings.Contains(strings.ToLower(reply), confirmationMarker):
		next = StepConfirmation
	case answers >= 2:
		next = StepInformationCollection
	case answers == 1:
		next = StepSubFunctionSelection
	default:
		next = StepFunctionSelection
	}

	if next.rank() < current.rank() {
		return current
	}
	return next
}
