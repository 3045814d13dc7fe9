package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/pkg/logger"
)

type inboundFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Router dispatches inbound frames from room clients. Messages that mention
// the assistant additionally become queued AI tasks.
type Router struct {
	hub   *Hub
	queue services.TaskQueue
}

func NewRouter(hub *Hub, queue services.TaskQueue) *Router {
	return &Router{hub: hub, queue: queue}
}

// HandleMessage processes one raw frame from a client. Malformed frames earn
// the sender an error event; nothing reaches the room.
func (r *Router) HandleMessage(c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.SendEvent(EventError, ErrorPayload{Message: "Invalid message format"})
		return
	}

	switch frame.Event {
	case EventProjectMessage:
		r.handleProjectMessage(c, frame.Payload)
	default:
		c.SendEvent(EventError, ErrorPayload{Message: "Unknown event: " + frame.Event})
	}
}

// handleProjectMessage relays a chat message to the rest of the room. The
// payload must be an object with a string message field.
func (r *Router) handleProjectMessage(c *Client, payload json.RawMessage) {
	var inbound InboundMessage
	if err := json.Unmarshal(payload, &inbound); err != nil || inbound.Message == nil {
		c.SendEvent(EventError, ErrorPayload{Message: "Invalid message format"})
		return
	}
	text := *inbound.Message

	msg := Message{
		ID:        uuid.NewString(),
		ProjectID: c.ProjectID,
		Sender:    Sender{ID: c.UserID, Username: c.Username},
		Message:   text,
		CreatedAt: time.Now().UTC(),
	}
	// The sender already has the message locally.
	r.hub.BroadcastToRoom(ProjectRoom(c.ProjectID), EventProjectMessage, msg, c)

	if !services.ContainsMention(text) {
		return
	}

	task := &services.AITask{
		RequestID:     msg.ID,
		ProjectID:     c.ProjectID,
		Room:          ProjectRoom(c.ProjectID),
		Prompt:        services.ExtractPrompt(text),
		RequesterID:   c.UserID,
		RequesterName: c.Username,
	}
	if err := r.queue.Enqueue(task); err != nil {
		logger.Errorf("[WS] Failed to enqueue assistant task %s: %v", task.RequestID, err)
		c.SendEvent(EventError, ErrorPayload{Message: "The assistant is unavailable right now"})
	}
}

// AIResponder resolves queued assistant tasks and delivers the result to the
// room. Wired as the processor of the task queue and worker.
type AIResponder struct {
	hub *Hub
	ai  *services.AIService
}

func NewAIResponder(hub *Hub, ai *services.AIService) *AIResponder {
	return &AIResponder{hub: hub, ai: ai}
}

// Process runs one assistant task. The typing indicator frames the work: it
// goes up before the provider call and comes down after the final message
// has been emitted, whatever the outcome.
func (p *AIResponder) Process(ctx context.Context, task *services.AITask) error {
	typing := TypingPayload{ProjectID: task.ProjectID}

	p.hub.EmitToRoom(task.Room, EventAITyping, TypingPayload{ProjectID: task.ProjectID, Typing: true})
	defer p.hub.EmitToRoom(task.Room, EventAITyping, typing)

	ctx, cancel := context.WithTimeout(ctx, p.ai.Timeout())
	defer cancel()

	env := p.ai.Ask(ctx, task.Prompt)

	msg := Message{
		ID:           uuid.NewString(),
		ProjectID:    task.ProjectID,
		Sender:       Sender{Username: "AI", AI: true},
		Message:      env.Text,
		Type:         env.Type,
		FileTree:     env.FileTree,
		BuildCommand: env.BuildCommand,
		StartCommand: env.StartCommand,
		Note:         env.Note,
		Error:        env.Error,
		ErrorType:    env.ErrorType,
		CreatedAt:    time.Now().UTC(),
	}
	p.hub.EmitToRoom(task.Room, EventProjectMessage, msg)
	return nil
}
