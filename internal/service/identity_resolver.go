package service

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Assertion is a verified external identity. Token verification happened
// upstream; the resolver trusts what it is handed.
type Assertion struct {
	Email     string
	Name      string
	AvatarURL string
	SubjectID string
}

// IdentityResolver maps credentials and federated assertions to exactly
// one User record, creating it when absent. It never returns the raw
// User: callers only ever see the credential-free view.
type IdentityResolver struct {
	users  UserDirectory
	hasher Hasher
	logger *zap.Logger
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(users UserDirectory, hasher Hasher) *IdentityResolver {
	return &IdentityResolver{
		users:  users,
		hasher: hasher,
		logger: util.GetLogger(),
	}
}

// errAuthFailed is deliberately undifferentiated: it never reveals
// whether the email or the password was wrong.
func errAuthFailed() *apperr.Error {
	return apperr.New(apperr.AuthFailed, "invalid email or password")
}

// ResolveByPassword authenticates an email/password pair. The locked
// check runs after the credential match, so a locked account with wrong
// credentials still reads as a plain auth failure.
func (r *IdentityResolver) ResolveByPassword(ctx context.Context, email, password string) (*models.UserView, error) {
	ctx, span := util.StartSpan(ctx, "IdentityResolver.ResolveByPassword")
	defer span.End()

	user, err := r.users.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.AuthFailuresTotal.WithLabelValues("password", "no_match").Inc()
			return nil, errAuthFailed()
		}
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not read user", err)
	}

	if !user.Password.Valid || !r.hasher.Compare(user.Password.String, password) {
		util.AuthFailuresTotal.WithLabelValues("password", "no_match").Inc()
		return nil, errAuthFailed()
	}

	if user.Status == models.UserStatusLocked {
		util.AuthFailuresTotal.WithLabelValues("password", "locked").Inc()
		return nil, apperr.New(apperr.AccountLocked, "account is locked")
	}

	util.AuthSuccessTotal.WithLabelValues("password").Inc()
	return user.View(), nil
}

// ResolveOrCreateByFederatedIdentity resolves a verified assertion to one
// user, creating the account on first sign-in. Two racing first sign-ins
// for the same email cannot create two rows: the insert leans on the
// email uniqueness constraint and treats a violation as "someone else
// just created it", re-reading and returning that row.
func (r *IdentityResolver) ResolveOrCreateByFederatedIdentity(ctx context.Context, a Assertion) (*models.UserView, error) {
	ctx, span := util.StartSpan(ctx, "IdentityResolver.ResolveOrCreateByFederatedIdentity")
	defer span.End()

	email := strings.TrimSpace(a.Email)

	user, err := r.users.UserByEmail(ctx, email)
	if err == nil {
		return r.resolveExisting(ctx, user, a)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not read user", err)
	}

	newUser := &models.User{
		FullName: a.Name,
		Email:    email,
		Role:     models.RoleCustomer,
		Status:   models.UserStatusActive,
	}
	if a.SubjectID != "" {
		newUser.GoogleID.String = a.SubjectID
		newUser.GoogleID.Valid = true
	}
	if a.AvatarURL != "" {
		newUser.Avatar.String = a.AvatarURL
		newUser.Avatar.Valid = true
	}

	err = r.users.InsertUser(ctx, newUser)
	if err == nil {
		util.AuthSuccessTotal.WithLabelValues("federated").Inc()
		r.logger.Info("Federated account created",
			zap.Int64("user_id", newUser.ID), zap.String("email", email))
		return newUser.View(), nil
	}

	if !errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not create user", err)
	}

	// Lost the creation race; the row exists now.
	user, err = r.users.UserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not re-read user after race", err)
	}
	return r.resolveExisting(ctx, user, a)
}

// resolveExisting applies the lock check and the opportunistic avatar
// backfill to an already-existing account.
func (r *IdentityResolver) resolveExisting(ctx context.Context, user *models.User, a Assertion) (*models.UserView, error) {
	if user.Status == models.UserStatusLocked {
		util.AuthFailuresTotal.WithLabelValues("federated", "locked").Inc()
		return nil, apperr.New(apperr.AccountLocked, "account is locked")
	}

	if !user.Avatar.Valid && a.AvatarURL != "" {
		// Best effort: a failed backfill must not fail the login.
		if err := r.users.UpdateUserAvatar(ctx, user.ID, a.AvatarURL); err != nil {
			r.logger.Warn("Avatar backfill failed",
				zap.Int64("user_id", user.ID), zap.Error(err))
		} else {
			user.Avatar.String = a.AvatarURL
			user.Avatar.Valid = true
		}
	}

	util.AuthSuccessTotal.WithLabelValues("federated").Inc()
	return user.View(), nil
}

// Register creates a password account. The duplicate-email race maps to
// ValidationFailed rather than silently resolving to the existing account:
// a second registration must not become a login.
func (r *IdentityResolver) Register(ctx context.Context, fullName, email, password string) (*models.UserView, error) {
	ctx, span := util.StartSpan(ctx, "IdentityResolver.Register")
	defer span.End()

	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" || password == "" {
		return nil, apperr.New(apperr.ValidationFailed, "full name, email and password are required")
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not hash credential", err)
	}

	user := &models.User{
		FullName: fullName,
		Email:    email,
		Role:     models.RoleCustomer,
		Status:   models.UserStatusActive,
	}
	user.Password.String = hash
	user.Password.Valid = true

	if err := r.users.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.New(apperr.ValidationFailed, "email is already in use")
		}
		return nil, apperr.Wrap(apperr.StoreUnavailable, "could not create user", err)
	}

	r.logger.Info("Account registered", zap.Int64("user_id", user.ID))
	return user.View(), nil
}

// UpdateProfileRequest carries the partial profile update. An empty
// Password leaves the stored credential untouched.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password,omitempty"`
}

// UpdateProfile partially updates profile fields; a supplied password is
// hashed before it replaces the stored credential.
func (r *IdentityResolver) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) error {
	ctx, span := util.StartSpan(ctx, "IdentityResolver.UpdateProfile")
	defer span.End()

	if strings.TrimSpace(req.FullName) == "" {
		return apperr.New(apperr.ValidationFailed, "full name is required")
	}

	var passwordHash *string
	if req.Password != "" {
		hash, err := r.hasher.Hash(req.Password)
		if err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "could not hash credential", err)
		}
		passwordHash = &hash
	}

	err := r.users.UpdateUserProfile(ctx, userID, strings.TrimSpace(req.FullName), req.Phone, req.Address, passwordHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Newf(apperr.NotFound, "user %d not found", userID)
		}
		return apperr.Wrap(apperr.StoreUnavailable, "could not update profile", err)
	}
	return nil
}

// SetUserStatus switches an account between active and locked.
func (r *IdentityResolver) SetUserStatus(ctx context.Context, userID int64, status string) error {
	if status != models.UserStatusActive && status != models.UserStatusLocked {
		return apperr.Newf(apperr.ValidationFailed, "unknown user status %q", status)
	}

	if err := r.users.SetUserStatus(ctx, userID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Newf(apperr.NotFound, "user %d not found", userID)
		}
		return apperr.Wrap(apperr.StoreUnavailable, "could not update user status", err)
	}
	return nil
}
