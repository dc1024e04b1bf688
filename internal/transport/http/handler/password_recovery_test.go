package handler

import (
	"net/http"
	"testing"

	"github.com/barter-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRecoverySend_UnknownEmail_NotFound(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SendResetOTP", mock.Anything, "ghost@example.com").Return(domain.ErrNotFound)
	h := NewPasswordRecoveryHandler(svc)

	rr := postJSON(t, h.Send, map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecoverySend_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("SendResetOTP", mock.Anything, "ana@example.com").Return(nil)
	h := NewPasswordRecoveryHandler(svc)

	rr := postJSON(t, h.Send, map[string]string{"email": "ana@example.com"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ana@example.com")
}

func TestRecoveryVerify_Mismatch_Unauthorized(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyResetOTP", mock.Anything, mock.Anything).Return(domain.ErrCodeMismatch)
	h := NewPasswordRecoveryHandler(svc)

	rr := postJSON(t, h.Verify, map[string]string{"email": "ana@example.com", "otp": "123456"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRecoveryComplete_PasswordReuse_BadRequest(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("CompleteReset", mock.Anything, mock.Anything).Return(domain.ErrBadRequest)
	h := NewPasswordRecoveryHandler(svc)

	rr := postJSON(t, h.Complete, map[string]string{
		"email":            "ana@example.com",
		"otp":              "123456",
		"new_password":     "New$ecret2222",
		"confirm_password": "New$ecret2222",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecoveryComplete_WeakNewPassword_Rejected(t *testing.T) {
	svc := &mockAuthSvc{}
	h := NewPasswordRecoveryHandler(svc)

	rr := postJSON(t, h.Complete, map[string]string{
		"email":            "ana@example.com",
		"otp":              "123456",
		"new_password":     "weak",
		"confirm_password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "CompleteReset", mock.Anything, mock.Anything)
}

func TestRecoveryComplete_OK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("CompleteReset", mock.Anything, mock.Anything).Return(nil)
	h := NewPasswordRecoveryHandler(svc)

	rr := postJSON(t, h.Complete, map[string]string{
		"email":            "ana@example.com",
		"otp":              "123456",
		"new_password":     "New$ecret2222",
		"confirm_password": "New$ecret2222",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}
