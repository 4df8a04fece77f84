package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verdant/internal/core"
	"verdant/internal/notifications/email"
	"verdant/internal/types"
)

// HookSecretHeader carries the shared secret of the auth provider hook.
const HookSecretHeader = "X-Hook-Secret"

// VerificationMailer is the email.Mailer contract.
type VerificationMailer interface {
	SendVerification(ctx context.Context, p email.VerifyParams) (email.Result, error)
}

// VerificationHandler receives the auth provider's "send verification email"
// hook.
type VerificationHandler struct {
	mailer    VerificationMailer
	validator *core.Validator
	secret    types.SecretString
	logger    *slog.Logger
}

// NewVerificationHandler builds the handler. An empty secret disables the
// header check; config validation only allows that in local.
func NewVerificationHandler(m VerificationMailer, val *core.Validator, secret types.SecretString, logger *slog.Logger) *VerificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if secret.IsEmpty() {
		logger.Warn("verification hook secret not set; hook is unauthenticated")
	}
	return &VerificationHandler{mailer: m, validator: val, secret: secret, logger: logger}
}

func (h *VerificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/verification-email", h.HandleSendVerification)
}

type verificationResponse struct {
	ReferenceID string `json:"reference_id"`
	Queued      bool   `json:"queued"`
}

// HandleSendVerification handles POST /api/auth/verification-email with body
// {user: {name, email}, url, token}. Returns 202 once the email is sent or
// queued.
func (h *VerificationHandler) HandleSendVerification(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthHookSecret, "invalid hook secret", nil))
		return
	}

	var p email.VerifyParams
	if err := core.DecodeJSON(w, r, &p); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(p); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.mailer.SendVerification(r.Context(), p)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusAccepted, verificationResponse{ReferenceID: res.ReferenceID, Queued: res.Queued})
}

func (h *VerificationHandler) authorized(r *http.Request) bool {
	if h.secret.IsEmpty() {
		return true
	}
	got := r.Header.Get(HookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret.Unmask())) == 1
}
