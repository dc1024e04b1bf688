package handler

import (
	"encoding/json"
	"net/http"

	"github.com/barter-api/internal/application/auth"
	"github.com/barter-api/internal/pkg/validate"
)

// RegisterHandler handles the OTP-gated registration flow.
type RegisterHandler struct {
	svc auth.Service
}

func NewRegisterHandler(svc auth.Service) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

func (h *RegisterHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SendRegistrationOTP(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: "verification code sent",
		Email:   req.Email,
	})
}

func (h *RegisterHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, tokens, err := h.svc.VerifyRegistrationOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Session:      toSafeSession(sess),
		User:         toSafeUser(sess.User),
		Message:      "account created",
	})
}

func (h *RegisterHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req auth.ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ResendRegistrationOTP(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: "verification code resent",
		Email:   req.Email,
	})
}
