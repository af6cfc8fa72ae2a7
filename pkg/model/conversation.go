package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type State string

const (
	StateInitialGreeting      State = "initial_greeting"
	StateFollowUp             State = "follow_up"
	StateCheckIn              State = "check_in"
	StateDeepIssueExploration State = "deep_issue_exploration"
	StateClosure              State = "closure"
)

// Validate checks if the state belongs to the closed set
func (s State) Validate() error {
	switch s {
	case StateInitialGreeting, StateFollowUp, StateCheckIn,
		StateDeepIssueExploration, StateClosure:
		return nil
	default:
		return goerr.New("invalid conversation state", goerr.V("state", s))
	}
}

// Transition is one entry of the append-only transition log
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Conversation is the per-user finite state machine. Created on first
// contact, mutated on every inbound event, never deleted. Revision guards
// against lost updates under concurrent writes.
type Conversation struct {
	UserID         UserID
	State          State
	LastTransition time.Time
	LastTopic      string
	LastInbound    time.Time
	TurnCount      int

	// TopicStreak counts consecutive turns on LastTopic, feeding the
	// deep-exploration transition.
	TopicStreak int

	Revision    int64
	Transitions []Transition
}

// NewConversation creates the initial state on first-ever contact
func NewConversation(id UserID, now time.Time) *Conversation {
	return &Conversation{
		UserID:         id,
		State:          StateInitialGreeting,
		LastTransition: now,
	}
}

type EventKind string

const (
	EventMessage EventKind = "message"
	EventTick    EventKind = "tick"
)

// Event is one inbound unit of work for the orchestrator: either a user
// message or a scheduler time tick.
type Event struct {
	Kind      EventKind
	UserID    UserID
	Text      string
	Timestamp time.Time
}

// NewMessageEvent creates a message event
func NewMessageEvent(id UserID, text string, ts time.Time) Event {
	return Event{Kind: EventMessage, UserID: id, Text: text, Timestamp: ts}
}

// NewTickEvent creates a time tick event
func NewTickEvent(id UserID, ts time.Time) Event {
	return Event{Kind: EventTick, UserID: id, Timestamp: ts}
}
