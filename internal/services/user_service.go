package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"projex/internal/cache"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/policy"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string
	User  core.User
}

// UserService owns accounts and resolves bearer identities to users.
type UserService struct {
	store      UserStore
	hasher     PasswordHasher
	tokens     TokenIssuer
	identities cache.Cache[int64, core.Identity]
}

// NewUserService wires the service. identities may be nil to disable
// caching.
func NewUserService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, identities cache.Cache[int64, core.Identity]) *UserService {
	return &UserService{store: store, hasher: hasher, tokens: tokens, identities: identities}
}

// Register creates an account and signs a token for it. A missing or
// unknown role becomes viewer.
func (s *UserService) Register(ctx context.Context, in core.RegisterInput) (AuthResult, error) {
	u, err := s.CreateUser(ctx, in, core.ParseRole(in.Role))
	if err != nil {
		return AuthResult{}, err
	}
	return s.authenticated(u)
}

// CreateUser validates and stores an account with the given role.
func (s *UserService) CreateUser(ctx context.Context, in core.RegisterInput, role core.Role) (core.User, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}
	if !role.Valid() {
		return core.User{}, core.Validationf("Invalid role %q", role)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, core.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.User{}, core.Conflictf("User already exists")
		}
		return core.User{}, err
	}

	applog.FromContext(ctx).InfoContext(ctx, "User registered",
		applog.FieldUserID, u.ID, applog.FieldRole, u.Role, applog.FieldOperation, applog.OpRegister)
	return u, nil
}

// Login checks credentials. Unknown email and wrong password fail the same
// way.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	invalid := core.Validationf("Invalid credentials")

	if strings.TrimSpace(email) == "" || password == "" {
		return AuthResult{}, core.Validationf("Please include email and password")
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return AuthResult{}, invalid
		}
		return AuthResult{}, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Login rejected",
			applog.FieldUserID, u.ID, applog.FieldOperation, applog.OpLogin)
		return AuthResult{}, invalid
	}
	return s.authenticated(u)
}

func (s *UserService) authenticated(u core.User) (AuthResult, error) {
	token, err := s.tokens.Issue(identityOf(u))
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, User: u}, nil
}

func (s *UserService) Profile(ctx context.Context, id *core.Identity) (core.User, error) {
	if err := policy.Authorize(id, policy.Read, policy.Profile(idOf(id))); err != nil {
		return core.User{}, err
	}
	return s.store.GetUser(ctx, id.ID)
}

// UpdateProfile changes the caller's name and email. Empty fields keep
// their current value.
func (s *UserService) UpdateProfile(ctx context.Context, id *core.Identity, in core.ProfileUpdate) (core.User, error) {
	if err := policy.Authorize(id, policy.Update, policy.Profile(idOf(id))); err != nil {
		return core.User{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}

	current, err := s.store.GetUser(ctx, id.ID)
	if err != nil {
		return core.User{}, err
	}
	name, email := current.Name, current.Email
	if in.Name != "" {
		name = in.Name
	}
	if in.Email != "" {
		email = in.Email
	}

	u, err := s.store.UpdateUserProfile(ctx, id.ID, name, email)
	if err != nil {
		return core.User{}, err
	}
	s.forget(id.ID)
	return u, nil
}

// ChangePassword replaces the caller's password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, id *core.Identity, current, next string) error {
	if err := policy.Authorize(id, policy.Update, policy.Profile(idOf(id))); err != nil {
		return err
	}
	if current == "" {
		return core.Validationf("Current password is required")
	}
	if err := core.ValidatePassword(next); err != nil {
		return err
	}

	u, err := s.store.GetUser(ctx, id.ID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, current); err != nil {
		return core.Validationf("Current password is incorrect")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, id.ID, hash); err != nil {
		return err
	}

	applog.FromContext(ctx).InfoContext(ctx, "Password changed", applog.FieldUserID, id.ID)
	return nil
}

// EnsureUser creates the account unless its email is already registered.
// It reports whether a user was created.
func (s *UserService) EnsureUser(ctx context.Context, in core.RegisterInput, role core.Role) (core.User, bool, error) {
	existing, err := s.store.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, false, err
	}
	u, err := s.CreateUser(ctx, in, role)
	if err != nil {
		return core.User{}, false, err
	}
	return u, true, nil
}

// EnsureDefaultAdmin seeds the configured admin account on first start.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context, name, email, password string) error {
	u, created, err := s.EnsureUser(ctx, core.RegisterInput{Name: name, Email: email, Password: password}, core.RoleAdmin)
	if err != nil {
		return fmt.Errorf("ensure default admin: %w", err)
	}
	if created {
		applog.FromContext(ctx).InfoContext(ctx, "Default admin created", applog.FieldUserID, u.ID)
	}
	return nil
}

// Identity resolves a user id taken from a verified token to the current
// account state, so role and name changes apply to existing tokens.
func (s *UserService) Identity(ctx context.Context, userID int64) (core.Identity, error) {
	if s.identities != nil {
		if id, ok := s.identities.Get(userID); ok {
			return id, nil
		}
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Identity{}, core.NotAuthorizedf("Not authorized, user not found")
		}
		return core.Identity{}, err
	}

	id := identityOf(u)
	if s.identities != nil {
		s.identities.Set(userID, id)
	}
	return id, nil
}

func (s *UserService) forget(userID int64) {
	if s.identities != nil {
		s.identities.Delete(userID)
	}
}

func identityOf(u core.User) core.Identity {
	return core.Identity{ID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}

func idOf(id *core.Identity) int64 {
	if id == nil {
		return 0
	}
	return id.ID
}
