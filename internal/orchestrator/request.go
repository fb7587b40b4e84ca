package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one inbound message with the caller's view of the history.
type Request struct {
	SessionID           string           `json:"sessionId"`
	Message             InboundMessage   `json:"message"`
	ConversationHistory []InboundMessage `json:"conversationHistory,omitempty"`
	Metadata            session.Metadata `json:"metadata,omitempty"`
}

// InboundMessage is a message as the caller sends it. Timestamp is unix
// millis.
type InboundMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Response is the reply to a Request.
type Response struct {
	Status string `json:"status"`
	Reply  string `json:"reply,omitempty"`
	Error  string `json:"error,omitempty"`
}

// validate checks the request without touching any state.
func (r *Request) validate(maxChars int) error {
	if !session.ValidID(r.SessionID) {
		return &ValidationError{Field: "sessionId", Reason: "must be 1-100 letters, digits, '-' or '_'"}
	}
	if session.Sender(strings.ToLower(r.Message.Sender)) != session.SenderScammer {
		return &ValidationError{Field: "message.sender", Reason: "must be \"scammer\""}
	}
	if strings.TrimSpace(r.Message.Text) == "" {
		return &ValidationError{Field: "message.text", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(r.Message.Text) > maxChars {
		return &ValidationError{Field: "message.text", Reason: "exceeds " + strconv.Itoa(maxChars) + " characters"}
	}
	if r.Message.Timestamp < 0 {
		return &ValidationError{Field: "message.timestamp", Reason: "must not be negative"}
	}
	return nil
}

// replayKey identifies a delivery of an inbound message.
func replayKey(sessionID string, ts int64, text string) string {
	sum := sha256.Sum256([]byte(text))
	return sessionID + ":" + strconv.FormatInt(ts, 10) + ":" + hex.EncodeToString(sum[:])[:16]
}

// diverges reports whether the caller's history disagrees with the stored
// conversation. Caller-side "user" and "agent" senders both mean the persona.
func diverges(history []InboundMessage, stored []session.Message) bool {
	if len(history) == 0 {
		return false
	}
	if len(history) != len(stored) {
		return true
	}
	for i, h := range history {
		sender := session.Sender(strings.ToLower(h.Sender))
		if sender == "user" {
			sender = session.SenderAgent
		}
		if sender != stored[i].Sender || h.Text != stored[i].Text {
			return true
		}
	}
	return false
}
