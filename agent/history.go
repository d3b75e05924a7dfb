package agent

import "github.com/ashbourne/agentloop/llm"

const defaultHistoryLimit = 100

// history is the bounded message log fed to the model on every
// reasoning call. Trimming keeps all system messages (the agent's
// instructions) and the most recent remainder, matching the
// conversation-trim idiom this family of agents uses.
type history struct {
	messages []llm.Message
	limit    int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &history{limit: limit}
}

func (h *history) Add(m llm.Message) {
	h.messages = append(h.messages, m)
	h.trim()
}

func (h *history) Messages() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *history) trim() {
	if len(h.messages) <= h.limit {
		return
	}

	var system []llm.Message
	var rest []llm.Message
	for _, m := range h.messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	keep := h.limit - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}

	h.messages = append(append([]llm.Message(nil), system...), rest...)
}
