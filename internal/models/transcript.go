// Package models defines API payloads and transcription events.
package models

// EventTypeTranscriptionCompleted is the event type of TranscriptionCompleted.
const EventTypeTranscriptionCompleted = "speech.transcription.completed"

// TranscriptionCompleted is published once per finished transcription
// request. The transcript text itself is not included.
type TranscriptionCompleted struct {
	EventType        string `json:"eventType" validate:"required,eq=speech.transcription.completed"`
	RequestID        string `json:"requestId" validate:"required"`
	HandleID         string `json:"handleId,omitempty"`
	Provider         string `json:"provider" validate:"required"`
	Language         string `json:"language" validate:"required"`
	Outcome          string `json:"outcome" validate:"required,oneof=ok no_speech backend_error other_error"`
	Status           int    `json:"status" validate:"required,oneof=200 500 503"`
	AudioBytes       int64  `json:"audioBytes" validate:"gte=0"`
	AudioDurationMs  int64  `json:"audioDurationMs" validate:"gte=0"`
	ProcessingMs     int64  `json:"processingMs" validate:"gte=0"`
	TranscriptLength int    `json:"transcriptLength" validate:"gte=0"`
	Simulated        bool   `json:"simulated"`
	Timestamp        int64  `json:"timestamp" validate:"required"`
}

// TranscribeResponse is the body of POST /api/transcribe.
type TranscribeResponse struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}

// PingResponse is the body of GET /api/ping.
type PingResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	PoolSize     int    `json:"poolSize"`
	Threads      int    `json:"threads"`
	LastActivity string `json:"lastActivity"`
}

// WakeupResponse is the body of GET /api/wakeup.
type WakeupResponse struct {
	Status     string `json:"status"`
	PoolSize   int    `json:"poolSize"`
	Calibrated int    `json:"calibrated"`
	Failed     int    `json:"failed"`
	TimedOut   int    `json:"timedOut"`
}
