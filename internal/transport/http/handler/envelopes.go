package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/barter-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Email echoes the address
// a verification code was dispatched to.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Email   string `json:"email,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps responses that issue a token pair.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	Session      *SafeSession `json:"session,omitempty"`
	User         *SafeUser    `json:"user,omitempty"`
	Message      string       `json:"message,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *SafeSession `json:"session,omitempty"`
	User    *SafeUser    `json:"user,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// SafeUser is the externally visible projection of a user.
type SafeUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        *string   `json:"phone,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Location     *string   `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created"`
}

// SafeSession is the externally visible projection of a session. The refresh
// token travels only in the AuthEnvelope, never inside the session object.
type SafeSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		ID:           u.UserID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.DisplayName,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		ProfileImage: u.ProfileImage,
		Location:     u.Location,
		CreatedAt:    u.CreatedAt,
	}
}

func toSafeSession(s *domain.Session) *SafeSession {
	if s == nil {
		return nil
	}
	return &SafeSession{
		ID:        s.SessionID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps a service error to a status via its wrapped sentinel.
// Unrecognized errors are logged and reported as a generic 500 so internal
// detail never reaches the client.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		slog.Error("unhandled service error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
