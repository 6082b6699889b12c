package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// MaxMessageLength caps chat message content
const MaxMessageLength = 512

// MessageType selects the delivery scope of a chat message
type MessageType string

const (
	MessageBroadcast MessageType = "broadcast"
	MessageDirect    MessageType = "direct"
)

// ParseMessageType rejects unknown message types
func ParseMessageType(raw string) (MessageType, error) {
	switch MessageType(raw) {
	case MessageBroadcast, MessageDirect:
		return MessageType(raw), nil
	default:
		return "", shared.NewValidationError("type", fmt.Sprintf("unknown message type %q", raw))
	}
}

// SendMessageCommand posts a chat message
type SendMessageCommand struct {
	Actor   common.Actor
	Type    MessageType
	ToName  string
	Content string
}

// SendMessageResponse acknowledges delivery
type SendMessageResponse struct {
	Success bool `json:"success"`
}

// SendMessageHandler serves send_message. Direct messages persist exactly
// two recipient rows, sender and recipient, and publish on both character
// topics only. Broadcasts publish on the global topic without log rows.
type SendMessageHandler struct {
	characters ports.CharacterRepository
	bus        *events.Bus
	clock      shared.Clock
}

// NewSendMessageHandler creates the handler
func NewSendMessageHandler(characters ports.CharacterRepository, bus *events.Bus, clock shared.Clock) *SendMessageHandler {
	return &SendMessageHandler{characters: characters, bus: bus, clock: clock}
}

// Handle executes the send
func (h *SendMessageHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*SendMessageCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return nil, shared.NewValidationError("content", "must not be empty")
	}
	if len(content) > MaxMessageLength {
		return nil, shared.NewValidationError("content", fmt.Sprintf("exceeds %d characters", MaxMessageLength))
	}

	sender, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())

	payload := map[string]interface{}{
		"type":      string(cmd.Type),
		"from":      string(sender.ID),
		"from_name": sender.Name,
		"content":   content,
	}

	switch cmd.Type {
	case MessageBroadcast:
		if err := h.bus.Emit(ctx, events.Emission{
			Type:       "chat.message",
			Payload:    payload,
			Scope:      event.BroadcastScope(),
			Originator: sender.ID,
			Source:     source,
		}); err != nil {
			return nil, err
		}
	case MessageDirect:
		if cmd.ToName == "" {
			return nil, shared.NewValidationError("to_name", "required for direct messages")
		}
		recipient, err := h.characters.FindByName(ctx, cmd.ToName)
		if err != nil {
			return nil, err
		}
		if recipient.ID == sender.ID {
			return nil, shared.NewValidationError("to_name", "cannot message yourself")
		}
		payload["to"] = string(recipient.ID)
		payload["to_name"] = recipient.Name

		if err := h.bus.Emit(ctx, events.Emission{
			Type:    "chat.message",
			Payload: payload,
			Scope:   event.CharacterScope(recipient.ID),
			Extra: []event.Recipient{
				{CharacterID: sender.ID, Reason: event.ReasonSender},
				{CharacterID: recipient.ID, Reason: event.ReasonRecipient},
			},
			Originator: sender.ID,
			Source:     source,
		}); err != nil {
			return nil, err
		}
	default:
		return nil, shared.NewValidationError("type", fmt.Sprintf("unknown message type %q", cmd.Type))
	}

	return &SendMessageResponse{Success: true}, nil
}
