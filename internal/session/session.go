// Package session holds the conversation data model and its persistence.
package session

import (
	"errors"
	"regexp"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
)

// State is a position in the per-session state machine.
type State string

const (
	StateNew           State = "NEW"
	StateEngaging      State = "ENGAGING"
	StateScamConfirmed State = "SCAM_CONFIRMED"
	StateReported      State = "REPORTED"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderScammer Sender = "scammer"
	SenderAgent   Sender = "agent"
)

// Limits on identifiers and content.
const (
	MaxIDLength = 100
)

// ErrNotFound is returned by Store.Get for an unseen session id.
var ErrNotFound = errors.New("session not found")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidID reports whether id is usable as a session id: 1-100 characters of
// letters, digits, hyphen or underscore.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Message is one immutable conversation turn. Timestamp is unix millis as
// supplied by the caller (inbound) or derived from it (agent replies).
type Message struct {
	ID        string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Metadata is caller-supplied channel context, recorded on creation.
type Metadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Session is the persisted state of one engagement.
type Session struct {
	ID            string                  `json:"sessionId"`
	State         State                   `json:"state"`
	Messages      []Message               `json:"messages"`
	Confidence    float64                 `json:"confidence"`
	Observations  int                     `json:"observations"`
	ScamConfirmed bool                    `json:"scamConfirmed"`
	CallbackSent  bool                    `json:"callbackSent"`
	Category      string                  `json:"category,omitempty"`
	Metadata      Metadata                `json:"metadata"`
	Intelligence  classifier.Intelligence `json:"extractedIntelligence"`
	CreatedAt     time.Time               `json:"createdAt"`
	LastActivity  time.Time               `json:"lastActivity"`
}

// New creates a session in StateNew.
func New(id string, meta Metadata, now time.Time) *Session {
	return &Session{
		ID:           id,
		State:        StateNew,
		Metadata:     meta,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// ExchangeCount counts scammer messages immediately answered by an agent
// message.
func (s *Session) ExchangeCount() int {
	n := 0
	for i := 1; i < len(s.Messages); i++ {
		if s.Messages[i-1].Sender == SenderScammer && s.Messages[i].Sender == SenderAgent {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so a cycle can mutate its working copy without
// touching what the store returned.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.Intelligence = s.Intelligence.Clone()
	return &c
}

// Cycle is the unit of work committed atomically at the end of one message
// cycle.
type Cycle struct {
	// Session carries the new row values (state, confidence, flags).
	Session *Session
	// Messages are appended in order.
	Messages []Message
	// Intelligence is unioned into the stored set.
	Intelligence classifier.Intelligence
	// Report flips the callback-sent flag with compare-and-set semantics.
	Report bool
	// Replay, when set, records the reply for re-delivery detection.
	Replay *ReplayEntry
}

// CommitResult reports what Commit changed.
type CommitResult struct {
	// Reported is true only for the commit that flipped the callback flag.
	Reported bool
}

// ReplayEntry maps an inbound delivery key to the reply that was returned.
type ReplayEntry struct {
	Key       string
	SessionID string
	Reply     string
	CreatedAt time.Time
}
