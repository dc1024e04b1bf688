package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barter-api/internal/domain"
	"github.com/barter-api/internal/infrastructure/smtp"
	"github.com/barter-api/internal/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error) {
	args := m.Called(ctx, displayName)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

// mockMailer records the last code it "delivered" so tests can submit it.
type mockMailer struct {
	mock.Mock
	lastCode string
}

func (m *mockMailer) SendOTP(to, code string, category smtp.Category) error {
	m.lastCode = code
	return m.Called(to, code, category).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockAvatarStore struct{ mock.Mock }

func (m *mockAvatarStore) EnsureDefaultAvatar(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type mockSessionIssuer struct{ mock.Mock }

func (m *mockSessionIssuer) Issue(ctx context.Context, u *domain.User) (*domain.Session, domain.TokenPair, error) {
	args := m.Called(ctx, u)
	sess, _ := args.Get(0).(*domain.Session)
	pair, _ := args.Get(1).(domain.TokenPair)
	return sess, pair, args.Error(2)
}

// --- builder ---

type fixtures struct {
	store   *otp.Store
	users   *mockUserStore
	mailer  *mockMailer
	sms     *mockSMSSender
	avatars *mockAvatarStore
	issuer  *mockSessionIssuer
	svc     Service
}

func newFixtures() *fixtures {
	f := &fixtures{
		store:   otp.NewStore(10*time.Minute, 5),
		users:   &mockUserStore{},
		mailer:  &mockMailer{},
		sms:     &mockSMSSender{},
		avatars: &mockAvatarStore{},
		issuer:  &mockSessionIssuer{},
	}
	f.svc = NewService(ServiceDeps{
		OTPStore:   f.store,
		UserRepo:   f.users,
		Mailer:     f.mailer,
		SMSSender:  f.sms,
		Avatars:    f.avatars,
		Sessions:   f.issuer,
		BcryptCost: bcrypt.MinCost,
	})
	return f
}

func validRegister() RegisterRequest {
	return RegisterRequest{
		FirstName:       "Ana",
		LastName:        "Reyes",
		Username:        "ana.reyes",
		Email:           "Ana@Example.com",
		Password:        "Sup3r$ecret!!",
		ConfirmPassword: "Sup3r$ecret!!",
	}
}

// expectNoExistingUser stubs the three uniqueness lookups to come back empty.
func (f *fixtures) expectNoExistingUser() {
	f.users.On("GetByUsername", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.users.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.users.On("GetByDisplayName", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
}

// --- registration ---

func TestRegistration_HappyPath(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", "ana@example.com", mock.Anything, smtp.CategoryRegister).Return(nil)
	f.avatars.On("EnsureDefaultAvatar", mock.Anything, mock.Anything).Return("s3://bucket/profiles/u1", nil)

	var created *domain.User
	f.users.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)
	f.issuer.On("Issue", mock.Anything, mock.AnythingOfType("*domain.User")).Return(
		&domain.Session{SessionID: "s1"}, domain.TokenPair{AccessToken: "at", RefreshToken: "rt"}, nil)

	require.NoError(t, f.svc.SendRegistrationOTP(context.Background(), validRegister()))

	sess, tokens, err := f.svc.VerifyRegistrationOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   f.mailer.lastCode,
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.SessionID)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)

	require.NotNil(t, created)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, "ana.reyes", created.Username)
	assert.Equal(t, "Ana Reyes", created.DisplayName)
	assert.Equal(t, "s3://bucket/profiles/u1", created.ProfileImage)
	assert.True(t, created.Enable)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("Sup3r$ecret!!")))

	// Record is consumed: verifying again must fail.
	_, _, err = f.svc.VerifyRegistrationOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   f.mailer.lastCode,
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistration_WrongCode_NoUserCreated_RecordStaysLive(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryRegister).Return(nil)

	require.NoError(t, f.svc.SendRegistrationOTP(context.Background(), validRegister()))

	wrong := "000000"
	if wrong == f.mailer.lastCode {
		wrong = "000001"
	}
	_, _, err := f.svc.VerifyRegistrationOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   wrong,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeMismatch))
	f.users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)

	_, ok := f.store.Get("ana@example.com")
	assert.True(t, ok, "record must survive a single mismatch")
}

func TestRegistration_DuplicateEmail_Conflict_NoStoreMutation(t *testing.T) {
	f := newFixtures()
	f.users.On("GetByUsername", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(&domain.User{UserID: "u9"}, nil)

	err := f.svc.SendRegistrationOTP(context.Background(), validRegister())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, ok := f.store.Get("ana@example.com")
	assert.False(t, ok)
	f.mailer.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistration_DuplicateUsername_Conflict(t *testing.T) {
	f := newFixtures()
	f.users.On("GetByUsername", mock.Anything, "ana.reyes").Return(&domain.User{UserID: "u9"}, nil)

	err := f.svc.SendRegistrationOTP(context.Background(), validRegister())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegistration_DeliveryFailure_RollsBackRecord(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryRegister).Return(errors.New("smtp down"))

	err := f.svc.SendRegistrationOTP(context.Background(), validRegister())
	require.Error(t, err)

	_, ok := f.store.Get("ana@example.com")
	assert.False(t, ok, "undelivered code must not stay verifiable")
}

func TestRegistration_Resend_ReissuesCode_InvalidatesOld(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryRegister).Return(nil)

	require.NoError(t, f.svc.SendRegistrationOTP(context.Background(), validRegister()))
	firstCode := f.mailer.lastCode

	require.NoError(t, f.svc.ResendRegistrationOTP(context.Background(), "ana@example.com"))

	rec, ok := f.store.Get("ana@example.com")
	require.True(t, ok)
	assert.Equal(t, f.mailer.lastCode, rec.Code)
	if firstCode != f.mailer.lastCode {
		res := f.store.Validate("ana@example.com", firstCode)
		assert.False(t, res.Valid, "old code must be invalid after resend")
	}
}

func TestRegistration_ResendWithoutPending_NotFound(t *testing.T) {
	f := newFixtures()
	err := f.svc.ResendRegistrationOTP(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistration_AttemptCap_ForcesFreshSend(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryRegister).Return(nil)

	require.NoError(t, f.svc.SendRegistrationOTP(context.Background(), validRegister()))

	wrong := "000000"
	if wrong == f.mailer.lastCode {
		wrong = "000001"
	}
	var err error
	for i := 0; i < 5; i++ {
		_, _, err = f.svc.VerifyRegistrationOTP(context.Background(), VerifyOTPRequest{
			Email: "ana@example.com",
			OTP:   wrong,
		})
	}
	assert.True(t, errors.Is(err, domain.ErrTooManyAttempts))

	// The record is gone; even the correct code is now rejected.
	_, _, err = f.svc.VerifyRegistrationOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   f.mailer.lastCode,
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegistration_AvatarFailure_DoesNotBlockAccount(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryRegister).Return(nil)
	f.avatars.On("EnsureDefaultAvatar", mock.Anything, mock.Anything).Return("", errors.New("s3 down"))

	var created *domain.User
	f.users.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Return(
		&domain.Session{SessionID: "s1"}, domain.TokenPair{}, nil)

	require.NoError(t, f.svc.SendRegistrationOTP(context.Background(), validRegister()))
	_, _, err := f.svc.VerifyRegistrationOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   f.mailer.lastCode,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Empty(t, created.ProfileImage)
}

// --- password reset ---

func seedUser(passwordHash string) *domain.User {
	return &domain.User{
		UserID:       "u1",
		Username:     "ana.reyes",
		Email:        "ana@example.com",
		PasswordHash: passwordHash,
		Enable:       true,
	}
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestReset_FullFlow(t *testing.T) {
	f := newFixtures()
	u := seedUser(hashOf(t, "Old$ecret111"))
	f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(u, nil)
	f.mailer.On("SendOTP", "ana@example.com", mock.Anything, smtp.CategoryReset).Return(nil)
	f.users.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		_, ok := m[fieldPasswordHash]
		return ok
	})).Return(nil)

	require.NoError(t, f.svc.SendResetOTP(context.Background(), "Ana@Example.com"))

	// Verify does not consume the record.
	require.NoError(t, f.svc.VerifyResetOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   f.mailer.lastCode,
	}))
	_, ok := f.store.Get("ana@example.com")
	require.True(t, ok)

	require.NoError(t, f.svc.CompleteReset(context.Background(), CompleteResetRequest{
		Email:           "ana@example.com",
		OTP:             f.mailer.lastCode,
		NewPassword:     "New$ecret2222",
		ConfirmPassword: "New$ecret2222",
	}))
	f.users.AssertExpectations(t)

	// Completion is single-use.
	err := f.svc.CompleteReset(context.Background(), CompleteResetRequest{
		Email:           "ana@example.com",
		OTP:             f.mailer.lastCode,
		NewPassword:     "New$ecret3333",
		ConfirmPassword: "New$ecret3333",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReset_UnknownEmail_NotFound(t *testing.T) {
	f := newFixtures()
	f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	err := f.svc.SendResetOTP(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	f.mailer.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything)
}

func TestReset_PasswordReuse_Rejected(t *testing.T) {
	f := newFixtures()
	u := seedUser(hashOf(t, "Same$ecret111"))
	f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(u, nil)
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryReset).Return(nil)

	require.NoError(t, f.svc.SendResetOTP(context.Background(), "ana@example.com"))

	err := f.svc.CompleteReset(context.Background(), CompleteResetRequest{
		Email:           "ana@example.com",
		OTP:             f.mailer.lastCode,
		NewPassword:     "Same$ecret111",
		ConfirmPassword: "Same$ecret111",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)

	// Rejection leaves the record live so the user can retry.
	_, ok := f.store.Get("ana@example.com")
	assert.True(t, ok)
}

func TestReset_SMSAlert_SentWhenPhoneOnFile(t *testing.T) {
	f := newFixtures()
	phone := "+639171234567"
	u := seedUser(hashOf(t, "Old$ecret111"))
	u.Phone = &phone
	f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(u, nil)
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryReset).Return(nil)
	f.sms.On("SendSMS", mock.Anything, phone, mock.Anything).Return(nil)

	require.NoError(t, f.svc.SendResetOTP(context.Background(), "ana@example.com"))
	f.sms.AssertExpectations(t)
}

func TestReset_VerifyWithRegisterRecord_NotFound(t *testing.T) {
	f := newFixtures()
	f.expectNoExistingUser()
	f.mailer.On("SendOTP", mock.Anything, mock.Anything, smtp.CategoryRegister).Return(nil)

	require.NoError(t, f.svc.SendRegistrationOTP(context.Background(), validRegister()))

	err := f.svc.VerifyResetOTP(context.Background(), VerifyOTPRequest{
		Email: "ana@example.com",
		OTP:   f.mailer.lastCode,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
