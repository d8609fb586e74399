package authgate

import (
	"io"

	"github.com/MrEthical07/authgate/internal/audit"
)

// AuditEntry is one append-only audit record: what happened, to which email, from where.
type AuditEntry = audit.Entry

// AuditSink receives audit entries. Implementations must not block for long; the
// engine never waits on audit writes for correctness.
type AuditSink = audit.Sink

// NoOpSink discards audit entries.
type NoOpSink = audit.NoOpSink

// ChannelSink exposes audit entries on a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit actions written on successful operations.
const (
	AuditSignup                = "signup"
	AuditLogin                 = "login"
	AuditAdminLogin            = "admin_login"
	AuditForgotPassword        = "forgot_password"
	AuditResetPassword         = "reset_password"
	AuditSendVerificationToken = "send_verification_token"
	AuditVerifyEmail           = "verify_email"
	AuditLogout                = "logout"
	AuditAdminCreated          = "admin_created"
)
