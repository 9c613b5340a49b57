package model

// ChatRole is who produced a chat turn.
type ChatRole string

const (
	// RoleUser marks a message typed by the user.
	RoleUser ChatRole = "user"
	// RoleModel marks a reply from the advisor.
	RoleModel ChatRole = "model"
)

// ChatTurn is one message of an advisor conversation.
type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
