package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"aistudio/internal/storage"
)

type chatMessageRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
	Model   string `json:"model" validate:"required,chat_model"`
	Role    string `json:"role" validate:"omitempty,eq=user"`
}

type chatMessageResponse struct {
	UserMessage      storage.ChatMessage `json:"userMessage"`
	AssistantMessage storage.ChatMessage `json:"assistantMessage"`
}

func (a *API) ListChatMessages(r *http.Request) (any, error) {
	msgs, err := a.store.ListChatMessages(r.Context())
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, "Failed to fetch chat messages", err)
	}
	if msgs == nil {
		msgs = []storage.ChatMessage{}
	}
	return msgs, nil
}

// SendChatMessage stores the user turn, asks the proxy for a reply and
// stores that as the assistant turn.
func (a *API) SendChatMessage(r *http.Request) (any, error) {
	req, err := ParseRequest[chatMessageRequest](r, a.validate)
	if err != nil {
		return nil, err
	}
	ctx := r.Context()

	userMsg, err := a.store.CreateChatMessage(ctx, storage.NewChatMessage{
		Content: req.Content,
		Role:    storage.RoleUser,
		Model:   req.Model,
	})
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, "Failed to process chat message", err)
	}

	reply := a.proxy.ChatReply(ctx, req.Content, req.Model)

	assistantMsg, err := a.store.CreateChatMessage(ctx, storage.NewChatMessage{
		Content: reply,
		Role:    storage.RoleAssistant,
		Model:   req.Model,
	})
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, "Failed to process chat message", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("model", req.Model).
		Str("user_message_id", userMsg.ID).
		Str("assistant_message_id", assistantMsg.ID).
		Msg("chat turn stored")

	return chatMessageResponse{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}
