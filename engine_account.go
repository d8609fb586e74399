package authgate

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/store"
)

// CreateAdminInput provisions an admin account. Admins cannot sign up through the
// public flows; operators create them with this.
type CreateAdminInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

// Signup creates an unverified user account. Email and username must both be unused
// among live users; the store's unique indexes settle concurrent signups.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (PublicUser, error) {
	if err := e.guard(ctx, "signup", in.CSRFToken, in.CaptchaToken, true); err != nil {
		return PublicUser{}, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := e.check(in); err != nil {
		return PublicUser{}, err
	}
	if err := e.checkPasswordPolicy(in.Password); err != nil {
		return PublicUser{}, err
	}

	acct, err := e.createAccount(ctx, "signup", RoleUser, in.Email, in.Username, in.Password)
	if err != nil {
		return PublicUser{}, err
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, AuditSignup, acct.Email)
	return acct.public(), nil
}

// CreateAdmin stores a new admin account.
func (e *Engine) CreateAdmin(ctx context.Context, in CreateAdminInput) (PublicUser, error) {
	if e == nil || e.store == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := e.check(in); err != nil {
		return PublicUser{}, err
	}
	if err := e.checkPasswordPolicy(in.Password); err != nil {
		return PublicUser{}, err
	}

	acct, err := e.createAccount(ctx, "create_admin", RoleAdmin, in.Email, in.Username, in.Password)
	if err != nil {
		return PublicUser{}, err
	}
	e.emitAudit(ctx, AuditAdminCreated, acct.Email)
	return acct.public(), nil
}

func (e *Engine) createAccount(ctx context.Context, op string, role Role, email, username, plain string) (account, error) {
	coll := e.accountCollection(role)

	// Early exit only; the unique indexes are what actually prevent duplicates.
	for _, filter := range []store.Filter{
		{"email": email, "deleted_at": nil},
		{"username": username, "deleted_at": nil},
	} {
		n, err := e.store.Count(ctx, coll, filter)
		if err != nil {
			return account{}, e.storeFailure(ctx, op, err)
		}
		if n > 0 {
			e.metricInc(MetricSignupConflict)
			return account{}, ErrAccountExists
		}
	}

	hashed, err := e.hash(ctx, op, plain)
	if err != nil {
		return account{}, err
	}

	now := e.now()
	acct := account{
		ID:        internal.NewRecordID(),
		Email:     email,
		Username:  username,
		Password:  hashed,
		Role:      role,
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = e.store.Create(ctx, coll, acct)
	if errors.Is(err, store.ErrDuplicate) {
		e.metricInc(MetricSignupConflict)
		return account{}, ErrAccountExists
	}
	if err != nil {
		return account{}, e.storeFailure(ctx, op, err)
	}
	return acct, nil
}
