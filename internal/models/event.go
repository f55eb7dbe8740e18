package models

// Event types published to Kafka.
const (
	EventUserRegistered = "user.registered"
	EventUserLogin      = "user.login"
)

// UserEvent represents an account lifecycle event, keyed by user.
type UserEvent struct {
	EventID   string `json:"event_id"`           // EventID is a unique identifier for the event.
	Timestamp int64  `json:"timestamp"`          // Timestamp is the Unix timestamp (in seconds) when the event occurred.
	UserID    string `json:"user_id"`            // UserID is the identifier of the affected user.
	Type      string `json:"type"`               // Type is one of the Event* constants.
	Provider  string `json:"provider,omitempty"` // Provider is "local" or the OAuth provider name.
}
