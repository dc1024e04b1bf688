package session

import (
	"context"
	"fmt"
	"time"

	"github.com/barter-api/internal/domain"
	"github.com/barter-api/internal/pkg/id"
	pkgtoken "github.com/barter-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldEnable = "enable"
)

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*domain.Session, domain.TokenPair, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Issue(ctx context.Context, u *domain.User) (*domain.Session, domain.TokenPair, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type jwtSigner interface {
	Sign(userID, email, sessionID string) (string, error)
}

type service struct {
	sessionRepo     sessionStore
	userRepo        userStore
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	SessionRepo     sessionStore
	UserRepo        userStore
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessionRepo:     deps.SessionRepo,
		userRepo:        deps.UserRepo,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

// Login accepts a username or an email as identifier. A missing account and
// a wrong password are reported distinctly.
func (s *service) Login(ctx context.Context, req LoginRequest) (*domain.Session, domain.TokenPair, error) {
	u, err := s.userRepo.GetByUsername(ctx, req.Identifier)
	if err != nil {
		u, err = s.userRepo.GetByEmail(ctx, req.Identifier)
		if err != nil {
			return nil, domain.TokenPair{}, fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
		}
	}
	if !u.Enable {
		return nil, domain.TokenPair{}, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("invalid password: %w", domain.ErrUnauthorized)
	}
	return s.Issue(ctx, u)
}

// Issue creates a fresh session for the user and signs a token pair.
func (s *service) Issue(ctx context.Context, u *domain.User) (*domain.Session, domain.TokenPair, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, domain.TokenPair{}, err
	}
	access, err := s.jwtProvider.Sign(u.UserID, u.Email, sess.SessionID)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	sess.User = u
	return sess, domain.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{fieldEnable: false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

// Refresh rotates the opaque refresh token and signs a new access token.
func (s *service) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return domain.TokenPair{}, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return domain.TokenPair{}, err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return domain.TokenPair{}, err
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	access, err := s.jwtProvider.Sign(u.UserID, u.Email, sess.SessionID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: newToken}, nil
}
