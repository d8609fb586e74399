package mail

import "fmt"

// Tags attached to outbound messages so providers can group them.
const (
	TagEmailVerification = "email-verification"
	TagPasswordReset     = "password-reset"
)

// VerificationMessage builds the email carrying an email-verification token.
func VerificationMessage(to, token string) Message {
	return Message{
		To:      to,
		Subject: "Email Verification",
		Text:    fmt.Sprintf("Your verification token is: %s", token),
		Tag:     TagEmailVerification,
	}
}

// PasswordResetMessage builds the email carrying a password-reset token.
func PasswordResetMessage(to, token string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset",
		Text:    fmt.Sprintf("Your reset token is: %s", token),
		Tag:     TagPasswordReset,
	}
}
