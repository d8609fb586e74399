package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricCSRFIssued, Name: "authgate_csrf_issued_total", Help: "Issued CSRF tokens."},
	{ID: authgate.MetricCSRFRejected, Name: "authgate_csrf_rejected_total", Help: "Requests declined for a missing, stale or foreign CSRF token."},
	{ID: authgate.MetricCSRFSwept, Name: "authgate_csrf_swept_total", Help: "CSRF records flagged expired by the sweeper."},
	{ID: authgate.MetricCaptchaRejected, Name: "authgate_captcha_rejected_total", Help: "Requests declined by CAPTCHA verification."},
	{ID: authgate.MetricValidationRejected, Name: "authgate_validation_rejected_total", Help: "Requests declined by input validation."},
	{ID: authgate.MetricSignupSuccess, Name: "authgate_signup_success_total", Help: "Created user accounts."},
	{ID: authgate.MetricSignupConflict, Name: "authgate_signup_conflict_total", Help: "Signups rejected because the email or username is taken."},
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful user logins."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "User logins with invalid credentials."},
	{ID: authgate.MetricLoginUnverified, Name: "authgate_login_unverified_total", Help: "Correct user logins declined for an unverified email."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricAdminLoginSuccess, Name: "authgate_admin_login_success_total", Help: "Successful admin logins."},
	{ID: authgate.MetricAdminLoginFailure, Name: "authgate_admin_login_failure_total", Help: "Admin logins with invalid credentials."},
	{ID: authgate.MetricPasswordRehashed, Name: "authgate_password_rehashed_total", Help: "Stored password hashes upgraded on login."},
	{ID: authgate.MetricPasswordResetRequest, Name: "authgate_password_reset_request_total", Help: "Password reset tokens issued."},
	{ID: authgate.MetricPasswordResetRateLimited, Name: "authgate_password_reset_rate_limited_total", Help: "Rate-limited password reset requests."},
	{ID: authgate.MetricPasswordResetSuccess, Name: "authgate_password_reset_success_total", Help: "Completed password resets."},
	{ID: authgate.MetricPasswordResetFailure, Name: "authgate_password_reset_failure_total", Help: "Password resets with an invalid or expired token."},
	{ID: authgate.MetricEmailVerificationRequest, Name: "authgate_email_verification_request_total", Help: "Email verification tokens issued."},
	{ID: authgate.MetricEmailVerificationRateLimited, Name: "authgate_email_verification_rate_limited_total", Help: "Rate-limited verification sends."},
	{ID: authgate.MetricEmailVerificationSuccess, Name: "authgate_email_verification_success_total", Help: "Verified email addresses."},
	{ID: authgate.MetricEmailVerificationFailure, Name: "authgate_email_verification_failure_total", Help: "Verifications with an invalid or expired token."},
	{ID: authgate.MetricEmailSendFailure, Name: "authgate_email_send_failure_total", Help: "Emails the configured sender failed to deliver."},
	{ID: authgate.MetricAuthenticateSuccess, Name: "authgate_authenticate_success_total", Help: "Accepted session tokens."},
	{ID: authgate.MetricAuthenticateFailure, Name: "authgate_authenticate_failure_total", Help: "Rejected session tokens."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Logout operations."},
	{ID: authgate.MetricStoreUnavailable, Name: "authgate_store_unavailable_total", Help: "Record store or Redis failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricLoginLatency, Name: "authgate_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets in seconds.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2",
	"+Inf",
}

// HistogramBoundSuffix names each bound in metric-safe form.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
