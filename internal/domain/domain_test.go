package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionClone(t *testing.T) {
	now := time.Now()
	orig := Session{
		ID:      "s-1",
		History: []Message{UserTurn("hello", now), ModelTurn("hi", now)},
		Answers: []string{"1"},
		Step:    StepSubFunctionSelection,
	}

	c := orig.Clone()
	c.History[0].Text = "mutated"
	c.History = append(c.History, UserTurn("extra", now))
	c.Answers[0] = "2"

	assert.Equal(t, "hello", orig.History[0].Text)
	assert.Len(t, orig.History, 2)
	assert.Equal(t, []string{"1"}, orig.Answers)
}

func TestSessionCloneNilSlices(t *testing.T) {
	c := Session{ID: "empty"}.Clone()
	assert.Nil(t, c.History)
	assert.Nil(t, c.Answers)
}

func TestSessionLastTurn(t *testing.T) {
	_, ok := Session{}.LastTurn()
	assert.False(t, ok)

	s := Session{History: []Message{UserTurn("a", time.Time{}), ModelTurn("b", time.Time{})}}
	last, ok := s.LastTurn()
	require.True(t, ok)
	assert.Equal(t, RoleModel, last.Role)
	assert.Equal(t, "b", last.Text)
}

func TestSessionAlternates(t *testing.T) {
	var zero time.Time
	tests := []struct {
		name    string
		history []Message
		want    bool
	}{
		{"empty", nil, true},
		{"seed pair", []Message{UserTurn("sys", zero), ModelTurn("ack", zero)}, true},
		{"dangling user turn", []Message{UserTurn("sys", zero), ModelTurn("ack", zero), UserTurn("q", zero)}, true},
		{"two user turns", []Message{UserTurn("sys", zero), ModelTurn("ack", zero), UserTurn("a", zero), UserTurn("b", zero)}, false},
		{"starts with model", []Message{ModelTurn("ack", zero)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Session{History: tt.history}.Alternates())
		})
	}
}

func TestMessageJSON(t *testing.T) {
	msg := ModelTurn("Which business function...", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"model"`)
	assert.Contains(t, string(data), `"text":"Which business function..."`)
}

func TestStepValid(t *testing.T) {
	for _, s := range Steps {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Step("closing").Valid())
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name    string
		current Step
		answers int
		reply   string
		want    Step
	}{
		{"first answer selects function", StepFunctionSelection, 1, "Please select the specific area you want to focus on", StepSubFunctionSelection},
		{"second answer starts collection", StepSubFunctionSelection, 2, "What is your industry or type of business?", StepInformationCollection},
		{"further questions stay in collection", StepInformationCollection, 5, "What is your timeline?", StepInformationCollection},
		{"confirmation request", StepInformationCollection, 7, "Please confirm if my understanding is correct before I proceed.", StepConfirmation},
		{"advisory note", StepConfirmation, 8, "TITLE: BUSINESS ADVISORY NOTE\n1. Executive Summary", StepFinalOutput},
		{"after final output", StepFinalOutput, 9, "Here is your execution checklist", StepFollowUp},
		{"follow up is terminal", StepFollowUp, 10, "Anything else?", StepFollowUp},
		{"never moves backwards", StepConfirmation, 8, "Could you clarify your budget?", StepConfirmation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStep(tt.current, tt.answers, tt.reply))
		})
	}
}
