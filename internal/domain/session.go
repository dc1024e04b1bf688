package domain

import "time"

// Session tracks an issued token pair. The refresh token is opaque and
// rotated on every refresh; the access token is a JWT and never stored.
type Session struct {
	SessionID        string    `json:"session_id" dynamodbav:"session_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"refresh_expires_at" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`

	// Populated by services for responses, never persisted.
	User *User `json:"user,omitempty" dynamodbav:"-"`
}
