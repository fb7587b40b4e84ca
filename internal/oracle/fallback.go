package oracle

import (
	"strings"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

// Fixed replies used outside normal generation.
const (
	ConfusedReply = "sorry im a bit confused can u explain again?"
	CapReply      = "i need to think about this more. let me call my bank first."
)

var hesitationReplies = []string{
	"hmm im not sure about all this. my son says never share bank things on phone",
	"wait i want to go to the branch and ask them first. which branch are u from?",
	"this is taking very long. can u send the details again so i can show my bank?",
	"im getting worried now... is there some other way to do this?",
}

type keyedReply struct {
	keys  []string
	reply string
}

var openingReplies = []keyedReply{
	{[]string{"block", "suspend"}, "Why will my account be blocked? I haven't done anything wrong."},
	{[]string{"verify"}, "Verify what? I didn't receive any notification from my bank."},
	{[]string{"prize", "won", "winner", "lottery"}, "Really? I don't remember entering any contest. What prize?"},
}

var followUpReplies = []keyedReply{
	{[]string{"upi"}, "My UPI ID? Why do you need that? Can't I verify another way?"},
	{[]string{"account number", "a/c"}, "You want my account number? Isn't it already in your system?"},
	{[]string{"link", "click"}, "What link? I'm not very good with these things. Can you explain?"},
	{[]string{"otp"}, "OTP? I haven't received any OTP yet. Where will it come from?"},
	{[]string{"urgent", "immediately"}, "Okay, I'm worried now. What exactly do I need to do?"},
}

// FallbackReply picks a deterministic reply from the conversation stage and
// the latest scammer message. conv includes the message being answered.
func FallbackReply(conv []session.Message, p Persona) string {
	n := len(conv)
	if p.MaxMessages > 0 && n >= p.MaxMessages {
		return CapReply
	}
	last := strings.ToLower(lastScammerText(conv))

	if n <= 1 {
		if r, ok := match(openingReplies, last); ok {
			return r
		}
		return "Is this message really from my bank?"
	}
	if p.HesitateAfter > 0 && n >= p.HesitateAfter {
		return hesitationReplies[n%len(hesitationReplies)]
	}
	if r, ok := match(followUpReplies, last); ok {
		return r
	}
	return "I'm confused. Can you explain this more clearly?"
}

func match(table []keyedReply, text string) (string, bool) {
	for _, kr := range table {
		for _, k := range kr.keys {
			if strings.Contains(text, k) {
				return kr.reply, true
			}
		}
	}
	return "", false
}

func lastScammerText(conv []session.Message) string {
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Sender == session.SenderScammer {
			return conv[i].Text
		}
	}
	return ""
}
