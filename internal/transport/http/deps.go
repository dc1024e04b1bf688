package http

import (
	"github.com/barter-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/barter-api/internal/infrastructure/jwt"
	s3infra "github.com/barter-api/internal/infrastructure/s3"
	"github.com/barter-api/internal/infrastructure/smtp"
	"github.com/barter-api/internal/infrastructure/sns"
	"github.com/barter-api/internal/otp"
)

// Deps holds all infrastructure dependencies for the router. JWTProvider and
// SMSSender may be nil; the router degrades gracefully (no auth enforcement,
// no SMS alerts) so local development works without keys or AWS credentials.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	SessionRepo *dynamo.SessionRepo
	OTPStore    *otp.Store
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
