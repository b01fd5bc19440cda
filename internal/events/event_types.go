package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload accompanies EventUserRegistered.
type UserRegisteredPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserLoggedInPayload accompanies EventUserLoggedIn.
type UserLoggedInPayload struct {
	Email          string    `json:"email"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}
