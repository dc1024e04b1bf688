package domain

import "time"

// User is a registered marketplace member. Accounts are only created after
// the registration OTP has been verified, so every persisted user has a
// proven email address.
type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	Phone        *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	DisplayName  string    `json:"name" dynamodbav:"display_name"`
	FirstName    string    `json:"first_name" dynamodbav:"first_name"`
	LastName     string    `json:"last_name" dynamodbav:"last_name"`
	ProfileImage string    `json:"profile_image,omitempty" dynamodbav:"profile_image"`
	Location     *string   `json:"location,omitempty" dynamodbav:"location"`
	Enable       bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// TokenPair carries the signed access token and the opaque refresh token
// issued for a session. The access token is short-lived (~1 day), the
// refresh token long-lived (~30 days); both windows come from config.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
