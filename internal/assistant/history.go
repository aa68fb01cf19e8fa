package assistant

import "github.com/thebtf/sitelog/pkg/models"

// HistoryTurns is how many prior messages are forwarded to the model.
const HistoryTurns = 10

// TrimHistory drops system messages, keeps the last n of the rest and
// normalizes every role to assistant or user.
func TrimHistory(history []models.ChatMessage, n int) []models.ChatMessage {
	filtered := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == models.RoleSystem {
			continue
		}
		filtered = append(filtered, m)
	}
	if n >= 0 && len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}

	out := make([]models.ChatMessage, 0, len(filtered))
	for _, m := range filtered {
		role := models.RoleUser
		if m.Role == models.RoleAssistant {
			role = models.RoleAssistant
		}
		out = append(out, models.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

// BuildMessages assembles the model input: system prompt, trimmed history,
// then the new user message.
func BuildMessages(system string, history []models.ChatMessage, message string) []models.ChatMessage {
	trimmed := TrimHistory(history, HistoryTurns)
	msgs := make([]models.ChatMessage, 0, len(trimmed)+2)
	msgs = append(msgs, models.ChatMessage{Role: models.RoleSystem, Content: system})
	msgs = append(msgs, trimmed...)
	msgs = append(msgs, models.ChatMessage{Role: models.RoleUser, Content: message})
	return msgs
}
