package inference

import (
	"math/rand"
	"strings"

	"github.com/samber/lo"
)

type Intent int

const (
	IntentGeneric Intent = iota
	IntentGreeting
	IntentHelp
	IntentCode
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentHelp:
		return "help"
	case IntentCode:
		return "code"
	default:
		return "generic"
	}
}

// Rules are checked in order and the first match wins. Keywords match as
// substrings of the lower-cased message.
var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentGreeting, []string{"hello", "hi", "สวัสดี"}},
	{IntentHelp, []string{"help", "ช่วย"}},
	{IntentCode, []string{"code", "program", "โค้ด"}},
}

func Classify(message string) Intent {
	lower := strings.ToLower(message)
	for _, rule := range intentRules {
		if lo.SomeBy(rule.keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			return rule.intent
		}
	}
	return IntentGeneric
}

const (
	personaLlama     = "llama3"
	personaMistral   = "mistral"
	personaCodeLlama = "codellama"
)

// Index 0 of each persona is its greeting and index 3 its offer of help.
var personas = map[string][]string{
	personaLlama: {
		"Hello! I'm Llama, an AI assistant. How can I help you today?",
		"I understand your question. Let me think about that...",
		"That's an interesting point. Here's what I think:",
		"I'm here to help! What would you like to know more about?",
	},
	personaMistral: {
		"Hi there! I'm Mistral. How can I assist you?",
		"I see what you're asking. Let me help you with that.",
		"That's a great question! Here's my thoughts:",
		"I'm ready to help. What else can I do for you?",
	},
	personaCodeLlama: {
		"Hello! I'm CodeLlama, specialized in programming. What code can I help with?",
		"I can help you with coding questions. What programming language are you working with?",
		"Let me assist you with that code. What specifically are you trying to achieve?",
		"I'm here for your programming needs. How can I help?",
	},
}

// Fallback produces canned replies when the remote model is unavailable.
type Fallback struct {
	intn func(n int) int
}

// NewFallback uses intn to pick generic replies; nil selects math/rand.
func NewFallback(intn func(n int) int) *Fallback {
	if intn == nil {
		intn = rand.Intn
	}
	return &Fallback{intn: intn}
}

func (f *Fallback) Reply(message, alias string) string {
	lines, ok := personas[alias]
	if !ok {
		lines = personas[personaMistral]
	}
	switch Classify(message) {
	case IntentGreeting:
		return lines[0]
	case IntentHelp:
		return lines[3]
	case IntentCode:
		return personas[personaCodeLlama][1]
	default:
		return lines[f.intn(len(lines))]
	}
}
