package storage

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// User is kept for parity with the data model; no HTTP route exposes it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

type ImageSettings struct {
	Style       string `json:"style,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type GeneratedImage struct {
	ID        string         `json:"id"`
	Prompt    string         `json:"prompt"`
	ImageURL  string         `json:"imageUrl"`
	Model     string         `json:"model"`
	Settings  *ImageSettings `json:"settings"`
	Timestamp time.Time      `json:"timestamp"`
}

type NewChatMessage struct {
	Content string
	Role    Role
	Model   string
}

type NewGeneratedImage struct {
	Prompt   string
	ImageURL string
	Model    string
	Settings *ImageSettings
}
