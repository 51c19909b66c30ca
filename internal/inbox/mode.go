// ABOUTME: Mode decision logic and transition announcements
// ABOUTME: A conversation produces automated replies only while its mode is AI

package inbox

import "github.com/Valey88/Profit-AI/internal/store"

// Decision is what the orchestrator does with an inbound user message.
type Decision int

const (
	// DoNothing archives the message without generating a reply.
	DoNothing Decision = iota
	// InvokeAI runs the response pipeline.
	InvokeAI
)

// Decide maps a conversation mode to an orchestrator decision. Only AI mode
// invokes the pipeline; HUMAN leaves the reply to the operator and DONE keeps
// the conversation closed while still archiving whatever arrives.
func Decide(mode store.Mode) Decision {
	switch mode {
	case store.ModeAI:
		return InvokeAI
	case store.ModeHuman, store.ModeDone:
		return DoNothing
	}
	return DoNothing
}

// transitionMessage is the announcement persisted and broadcast when a
// conversation actually changes mode.
func transitionMessage(mode store.Mode) string {
	switch mode {
	case store.ModeHuman:
		return "Менеджер подключился к диалогу. AI приостановлен."
	case store.ModeAI:
		return "AI-ассистент снова активен."
	case store.ModeDone:
		return "Диалог завершен."
	}
	return ""
}
