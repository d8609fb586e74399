package authgate

import "time"

// Role is the principal kind a login is attempted for. It is declared by the caller
// and selects which collection is consulted.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SignupInput creates an unverified user account.
type SignupInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,max=72"`
	Username     string `json:"username" validate:"required,alphanum,min=3,max=32"`
	CSRFToken    string `json:"csrfToken"`
	CaptchaToken string `json:"recaptchaToken"`
}

// LoginInput authenticates a user or admin.
type LoginInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,max=4096"`
	Role         Role   `json:"role"`
	CSRFToken    string `json:"csrfToken"`
	CaptchaToken string `json:"recaptchaToken"`
}

// ForgotPasswordInput requests a password-reset token by email.
type ForgotPasswordInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	CSRFToken    string `json:"csrfToken"`
	CaptchaToken string `json:"recaptchaToken"`
}

// ResetPasswordInput redeems a password-reset token.
type ResetPasswordInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Token        string `json:"token" validate:"required,hexadecimal,max=256"`
	NewPassword  string `json:"newPassword" validate:"required,max=72"`
	CSRFToken    string `json:"csrfToken"`
	CaptchaToken string `json:"recaptchaToken"`
}

// SendVerificationInput requests an email-verification token. It is not CAPTCHA-gated.
type SendVerificationInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	CSRFToken string `json:"csrfToken"`
}

// VerifyTokenInput redeems an email-verification token.
type VerifyTokenInput struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Token        string `json:"token" validate:"required,hexadecimal,max=256"`
	CSRFToken    string `json:"csrfToken"`
	CaptchaToken string `json:"recaptchaToken"`
}

// PublicUser is the account projection returned to clients. It never carries the
// password hash. Verified is only set for users.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Verified *bool  `json:"verified,omitempty"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// Session describes an authenticated, unrevoked session token.
type Session struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// account is the stored shape of users and admins.
type account struct {
	ID        string     `bson:"_id"`
	Email     string     `bson:"email"`
	Username  string     `bson:"username"`
	Password  string     `bson:"password"`
	Role      Role       `bson:"role"`
	Verified  bool       `bson:"verified"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at"`
}

func (a account) public() PublicUser {
	u := PublicUser{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Username,
		Role:  a.Role,
	}
	if a.Role == RoleUser {
		verified := a.Verified
		u.Verified = &verified
	}
	return u
}
