package handler

import (
	"encoding/json"
	"net/http"

	"github.com/barter-api/internal/application/auth"
	"github.com/barter-api/internal/pkg/validate"
)

// PasswordRecoveryHandler handles the OTP-gated password reset flow.
type PasswordRecoveryHandler struct {
	svc auth.Service
}

func NewPasswordRecoveryHandler(svc auth.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SendResetOTP(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: "password reset code sent",
		Email:   req.Email,
	})
}

func (h *PasswordRecoveryHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.VerifyResetOTP(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code verified"})
}

func (h *PasswordRecoveryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req auth.CompleteResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.CompleteReset(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}
