// Package request tracks the lifecycle of a single transcription request.
package request

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-speech-transcribe-service/internal/service/pool"
)

// State represents the lifecycle state of a request.
type State int

const (
	// StateReceived - upload accepted, nothing persisted yet.
	StateReceived State = iota
	// StateStored - upload written to scratch storage.
	StateStored
	// StateLeased - a recognizer handle is held.
	StateLeased
	// StateReleased - the handle went back to the pool.
	StateReleased
	// StateCompleted - status and transcript are final.
	StateCompleted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "RECEIVED"
	case StateStored:
		return "STORED"
	case StateLeased:
		return "LEASED"
	case StateReleased:
		return "RELEASED"
	case StateCompleted:
		return "COMPLETED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrNotStored     = errors.New("request has no stored upload")
	ErrAlreadyStored = errors.New("request upload already stored")
	ErrAlreadyLeased = errors.New("request already holds a handle")
	ErrStillLeased   = errors.New("request still holds a handle")
	ErrCompleted     = errors.New("request already completed")
	ErrNilHandle     = errors.New("nil handle")
)

// Context is the per-request record. Safe for concurrent access.
//
// State transitions:
//
//	RECEIVED → STORED → LEASED → RELEASED → COMPLETED
//	   │          │                            ▲
//	   └──────────┴──── Complete() ────────────┘
//
// Rules:
//   - At most one handle is leased at a time.
//   - Complete() is rejected while a handle is leased, and only once.
type Context struct {
	mu         sync.RWMutex
	id         string
	startedAt  time.Time
	filePath   string
	handle     *pool.Handle
	state      State
	status     int
	transcript string
}

// New creates a request context in RECEIVED state. An empty id gets a
// generated one.
func New(id string) *Context {
	if id == "" {
		id = uuid.NewString()
	}
	return &Context{
		id:        id,
		startedAt: time.Now(),
		state:     StateReceived,
	}
}

// ID returns the request identifier.
func (c *Context) ID() string { return c.id }

// StartedAt returns the time the request was received.
func (c *Context) StartedAt() time.Time { return c.startedAt }

// Elapsed returns the time since the request was received.
func (c *Context) Elapsed() time.Duration { return time.Since(c.startedAt) }

// State returns the current state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// FilePath returns the scratch path of the upload, if stored.
func (c *Context) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// Handle returns the leased handle, or nil.
func (c *Context) Handle() *pool.Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}

// Stored records the scratch path of the upload.
func (c *Context) Stored(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReceived:
		c.filePath = path
		c.state = StateStored
		return nil
	case StateCompleted:
		return ErrCompleted
	default:
		return ErrAlreadyStored
	}
}

// Lease records h as the request's handle.
func (c *Context) Lease(h *pool.Handle) error {
	if h == nil {
		return ErrNilHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateStored:
		c.handle = h
		c.state = StateLeased
		return nil
	case StateReceived:
		return ErrNotStored
	case StateLeased:
		return ErrAlreadyLeased
	case StateCompleted:
		return ErrCompleted
	default:
		return fmt.Errorf("cannot lease in state %v", c.state)
	}
}

// Release detaches the leased handle and returns it. Returns nil when no
// handle is held, so callers can release unconditionally.
func (c *Context) Release() *pool.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLeased {
		return nil
	}
	h := c.handle
	c.handle = nil
	c.state = StateReleased
	return h
}

// Complete records the final status and transcript.
func (c *Context) Complete(status int, transcript string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateLeased:
		return ErrStillLeased
	case StateCompleted:
		return ErrCompleted
	}
	c.status = status
	c.transcript = transcript
	c.state = StateCompleted
	return nil
}

// Result returns the recorded status and transcript.
func (c *Context) Result() (int, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.transcript
}
