package realtime

import (
	"fmt"
	"time"

	"github.com/collabspace/server/internal/services"
)

// Event names on the websocket wire.
const (
	EventProjectMessage = "project-message"
	EventAITyping       = "ai-typing"
	EventNewInvitation  = "new-invitation"
	EventError          = "error"
)

// ProjectRoom names the shared room for a project.
func ProjectRoom(projectID uint) string {
	return fmt.Sprintf("project:%d", projectID)
}

// UserRoom names a user's personal room, used for direct notifications
// such as new invitations.
func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// Frame is the envelope every websocket payload travels in, both directions.
type Frame struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Sender identifies the author of a room message. AI is set on messages
// produced by the assistant.
type Sender struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	AI       bool   `json:"ai,omitempty"`
}

// InboundMessage is the payload clients send with a project-message event.
// Message must be a plain JSON string.
type InboundMessage struct {
	Message *string `json:"message"`
}

// Message is the payload of an outbound project-message event. Assistant
// replies carry the envelope fields flattened alongside the message text.
type Message struct {
	ID           string                       `json:"id"`
	ProjectID    uint                         `json:"projectId"`
	Sender       Sender                       `json:"sender"`
	Message      string                       `json:"message"`
	Type         string                       `json:"type,omitempty"`
	FileTree     map[string]services.FileNode `json:"fileTree,omitempty"`
	BuildCommand string                       `json:"buildCommand,omitempty"`
	StartCommand string                       `json:"startCommand,omitempty"`
	Note         string                       `json:"note,omitempty"`
	Error        bool                         `json:"error,omitempty"`
	ErrorType    string                       `json:"errorType,omitempty"`
	CreatedAt    time.Time                    `json:"createdAt"`
}

// TypingPayload is the payload of an ai-typing event.
type TypingPayload struct {
	ProjectID uint `json:"projectId"`
	Typing    bool `json:"isTyping"`
}

// ErrorPayload is the payload of an error event sent to a single client.
type ErrorPayload struct {
	Message string `json:"message"`
}
