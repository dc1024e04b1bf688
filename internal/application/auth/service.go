// Package auth implements the email-verification flows: OTP-gated
// registration and OTP-gated password reset. No account is created and no
// password is changed until the code sent to the address has been proven.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/barter-api/internal/domain"
	"github.com/barter-api/internal/infrastructure/smtp"
	"github.com/barter-api/internal/otp"
	"github.com/barter-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldPasswordHash = "password_hash"
)

type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CompleteResetRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword     string `json:"new_password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type Service interface {
	SendRegistrationOTP(ctx context.Context, req RegisterRequest) error
	VerifyRegistrationOTP(ctx context.Context, req VerifyOTPRequest) (*domain.Session, domain.TokenPair, error)
	ResendRegistrationOTP(ctx context.Context, email string) error
	SendResetOTP(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, req VerifyOTPRequest) error
	CompleteReset(ctx context.Context, req CompleteResetRequest) error
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type codeMailer interface {
	SendOTP(to, code string, category smtp.Category) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type avatarStore interface {
	EnsureDefaultAvatar(ctx context.Context, userID string) (string, error)
}

type sessionIssuer interface {
	Issue(ctx context.Context, u *domain.User) (*domain.Session, domain.TokenPair, error)
}

type service struct {
	otpStore   *otp.Store
	userRepo   userStore
	mailer     codeMailer
	smsSender  smsSender
	avatars    avatarStore
	sessions   sessionIssuer
	bcryptCost int
}

type ServiceDeps struct {
	OTPStore   *otp.Store
	UserRepo   userStore
	Mailer     codeMailer
	SMSSender  smsSender
	Avatars    avatarStore
	Sessions   sessionIssuer
	BcryptCost int
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		otpStore:   deps.OTPStore,
		userRepo:   deps.UserRepo,
		mailer:     deps.Mailer,
		smsSender:  deps.SMSSender,
		avatars:    deps.Avatars,
		sessions:   deps.Sessions,
		bcryptCost: cost,
	}
}

func (s *service) SendRegistrationOTP(ctx context.Context, req RegisterRequest) error {
	email := otp.NormalizeIdentifier(req.Email)

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	displayName := composeDisplayName(req.FirstName, req.LastName)
	if _, err := s.userRepo.GetByDisplayName(ctx, displayName); err == nil {
		return fmt.Errorf("name already taken: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return err
	}

	code, err := s.otpStore.Set(email, otp.RegisterPayload{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(email, code, smtp.CategoryRegister); err != nil {
		// The user never received the code; invalidate it so a stale record
		// cannot be verified after a later successful send.
		s.otpStore.Delete(email)
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (s *service) VerifyRegistrationOTP(ctx context.Context, req VerifyOTPRequest) (*domain.Session, domain.TokenPair, error) {
	email := otp.NormalizeIdentifier(req.Email)

	res := s.otpStore.Validate(email, req.OTP)
	if !res.Valid {
		return nil, domain.TokenPair{}, failureErr(res.Failure)
	}
	payload, ok := res.Payload.(otp.RegisterPayload)
	if !ok {
		return nil, domain.TokenPair{}, fmt.Errorf("no pending registration for this email: %w", domain.ErrNotFound)
	}

	// The uniqueness window between send and verify is small but real.
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		s.otpStore.Delete(email)
		return nil, domain.TokenPair{}, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}

	userID := id.New()
	image, err := s.avatars.EnsureDefaultAvatar(ctx, userID)
	if err != nil {
		slog.Warn("failed to provision default profile image", "user_id", userID, "err", err)
		image = ""
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       userID,
		Username:     payload.Username,
		Email:        email,
		PasswordHash: payload.PasswordHash,
		DisplayName:  composeDisplayName(payload.FirstName, payload.LastName),
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		ProfileImage: image,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.otpStore.Delete(email)

	sess, tokens, err := s.sessions.Issue(ctx, u)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return sess, tokens, nil
}

func (s *service) ResendRegistrationOTP(ctx context.Context, email string) error {
	email = otp.NormalizeIdentifier(email)

	rec, ok := s.otpStore.Get(email)
	if !ok || rec.Payload.Purpose() != otp.PurposeRegister {
		return fmt.Errorf("no pending registration for this email: %w", domain.ErrNotFound)
	}

	code, err := s.otpStore.Set(email, rec.Payload)
	if err != nil {
		return err
	}
	if err := s.mailer.SendOTP(email, code, smtp.CategoryRegister); err != nil {
		s.otpStore.Delete(email)
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (s *service) SendResetOTP(ctx context.Context, email string) error {
	email = otp.NormalizeIdentifier(email)

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
	}

	code, err := s.otpStore.Set(email, otp.ResetPayload{Username: u.Username})
	if err != nil {
		return err
	}
	if err := s.mailer.SendOTP(email, code, smtp.CategoryReset); err != nil {
		s.otpStore.Delete(email)
		return fmt.Errorf("send reset email: %w", err)
	}

	if u.Phone != nil && s.smsSender != nil {
		alert := "A password reset was requested for your Palitan Tayo account. If this wasn't you, secure your account."
		if err := s.smsSender.SendSMS(ctx, *u.Phone, alert); err != nil {
			slog.Warn("failed to send password-reset SMS alert", "user_id", u.UserID, "err", err)
		}
	}
	return nil
}

func (s *service) VerifyResetOTP(ctx context.Context, req VerifyOTPRequest) error {
	email := otp.NormalizeIdentifier(req.Email)

	res := s.otpStore.Validate(email, req.OTP)
	if !res.Valid {
		return failureErr(res.Failure)
	}
	if res.Payload.Purpose() != otp.PurposePasswordReset {
		return fmt.Errorf("no pending password reset for this email: %w", domain.ErrNotFound)
	}
	// The record stays live: completion re-validates the same code.
	return nil
}

func (s *service) CompleteReset(ctx context.Context, req CompleteResetRequest) error {
	email := otp.NormalizeIdentifier(req.Email)

	res := s.otpStore.Validate(email, req.OTP)
	if !res.Valid {
		return failureErr(res.Failure)
	}
	if res.Payload.Purpose() != otp.PurposePasswordReset {
		return fmt.Errorf("no pending password reset for this email: %w", domain.ErrNotFound)
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.NewPassword)) == nil {
		return fmt.Errorf("new password must differ from the current password: %w", domain.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		fieldPasswordHash: string(hash),
	}); err != nil {
		return err
	}
	s.otpStore.Delete(email)
	return nil
}

func composeDisplayName(firstName, lastName string) string {
	return strings.TrimSpace(firstName + " " + lastName)
}

// failureErr translates a store validation failure into the sentinel-wrapped
// error the transport layer maps to a status code.
func failureErr(f otp.Failure) error {
	switch f {
	case otp.FailureExpired:
		return fmt.Errorf("verification code expired: %w", domain.ErrExpired)
	case otp.FailureMismatch:
		return fmt.Errorf("incorrect verification code: %w", domain.ErrCodeMismatch)
	case otp.FailureTooManyAttempts:
		return fmt.Errorf("too many incorrect attempts: %w", domain.ErrTooManyAttempts)
	default:
		return fmt.Errorf("no pending verification for this email: %w", domain.ErrNotFound)
	}
}
