package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
)

const (
	msgSignup           = "Signup successful. Please verify your email."
	msgForgotPassword   = "Password reset token sent to your email"
	msgResetPassword    = "Password reset successful"
	msgSendVerification = "Verification token sent to your email"
	msgVerifyEmail      = "Email verified successfully"
	msgLogout           = "Logged out successfully"
)

type handlers struct {
	engine *authgate.Engine
	log    *slog.Logger
}

func (h *handlers) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.engine.IssueCSRFToken(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, CSRFToken: token})
}

func (h *handlers) signup(w http.ResponseWriter, r *http.Request) {
	var in authgate.SignupInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if _, err := h.engine.Signup(r.Context(), in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, msgSignup)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in authgate.LoginInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.engine.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in authgate.ForgotPasswordInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.engine.ForgotPassword(r.Context(), in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, msgForgotPassword)
}

func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in authgate.ResetPasswordInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.engine.ResetPassword(r.Context(), in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, msgResetPassword)
}

func (h *handlers) sendVerificationToken(w http.ResponseWriter, r *http.Request) {
	var in authgate.SendVerificationInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.engine.SendVerificationToken(r.Context(), in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, msgSendVerification)
}

func (h *handlers) verifyToken(w http.ResponseWriter, r *http.Request) {
	var in authgate.VerifyTokenInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.engine.VerifyToken(r.Context(), in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, msgVerifyEmail)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, msgLogout)
}

// me runs behind middleware.Guard.
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, h.log, authgate.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, User: sess})
}
