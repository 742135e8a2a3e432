package schema

import (
	"strings"
	"testing"
	"time"

	"ai-speech-transcribe-service/internal/models"
)

func validEvent() models.TranscriptionCompleted {
	return models.TranscriptionCompleted{
		EventType: models.EventTypeTranscriptionCompleted,
		RequestID: "req-1",
		Provider:  "mock",
		Language:  "vi",
		Outcome:   "ok",
		Status:    200,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := New().Validate(validEvent()); err != nil {
		t.Errorf("expected valid event, got %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *models.TranscriptionCompleted)
		field  string
	}{
		{"missing request id", func(e *models.TranscriptionCompleted) { e.RequestID = "" }, "RequestID"},
		{"wrong event type", func(e *models.TranscriptionCompleted) { e.EventType = "other" }, "EventType"},
		{"unknown outcome", func(e *models.TranscriptionCompleted) { e.Outcome = "maybe" }, "Outcome"},
		{"client error status", func(e *models.TranscriptionCompleted) { e.Status = 400 }, "Status"},
		{"negative bytes", func(e *models.TranscriptionCompleted) { e.AudioBytes = -1 }, "AudioBytes"},
	}
	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			err := v.Validate(e)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to name %s, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_NonStruct(t *testing.T) {
	if err := New().Validate("not a struct"); err == nil {
		t.Error("expected error for non-struct value")
	}
}
