package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

func TestFallbackReplyOpening(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Your account will be SUSPENDED", "Why will my account be blocked? I haven't done anything wrong."},
		{"please verify your KYC", "Verify what? I didn't receive any notification from my bank."},
		{"Congratulations you won a car", "Really? I don't remember entering any contest. What prize?"},
		{"hello dear", "Is this message really from my bank?"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackReply(scammer(tt.text), DefaultPersona()))
		})
	}
}

func TestFallbackReplyFollowUp(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"share your UPI id", "My UPI ID? Why do you need that? Can't I verify another way?"},
		{"send account number", "You want my account number? Isn't it already in your system?"},
		{"click this link", "What link? I'm not very good with these things. Can you explain?"},
		{"tell me the OTP", "OTP? I haven't received any OTP yet. Where will it come from?"},
		{"do it immediately", "Okay, I'm worried now. What exactly do I need to do?"},
		{"ok", "I'm confused. Can you explain this more clearly?"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			conv := scammer("hello", "who is this?", tt.text)
			assert.Equal(t, tt.want, FallbackReply(conv, DefaultPersona()))
		})
	}
}

func TestFallbackReplyHesitatesLate(t *testing.T) {
	conv := make([]session.Message, 16)
	for i := range conv {
		conv[i] = session.Message{Sender: session.SenderScammer, Text: "send upi now"}
	}
	got := FallbackReply(conv, DefaultPersona())
	assert.Contains(t, hesitationReplies, got)
}

func TestFallbackReplyCap(t *testing.T) {
	conv := make([]session.Message, 20)
	assert.Equal(t, CapReply, FallbackReply(conv, DefaultPersona()))
	assert.Equal(t, CapReply, FallbackReply(conv[:3], Persona{MaxMessages: 3}))
}

func TestFallbackReplyUsesLastScammerMessage(t *testing.T) {
	conv := []session.Message{
		{Sender: session.SenderScammer, Text: "hello"},
		{Sender: session.SenderScammer, Text: "give otp"},
		{Sender: session.SenderAgent, Text: "what link?"},
	}
	assert.Equal(t, "OTP? I haven't received any OTP yet. Where will it come from?", FallbackReply(conv, DefaultPersona()))
}
