package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/clock"
	"fintrack/internal/core"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

const minPasswordLength = 6

type (
	// TokenIssuer signs session tokens for a user id.
	TokenIssuer interface {
		Issue(userID string) (string, error)
	}

	// GoogleIdentity is the verified subset of a Google ID token.
	GoogleIdentity struct {
		Subject string
		Email   string
		Name    string
	}

	// GoogleVerifier validates a Google ID token against the configured
	// client ids.
	GoogleVerifier interface {
		Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
	}

	// Session is returned by every sign-in path.
	Session struct {
		User          core.User `json:"user"`
		Token         string    `json:"token"`
		AccountLinked bool      `json:"accountLinked"`
	}

	RegisterInput struct {
		Email    string
		Password string
		Name     string
	}

	ProfileInput struct {
		Name      *string
		FirstName *string
		LastName  *string
	}
)

// AuthService handles accounts and sign-in.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	google GoogleVerifier
	clock  clock.Clock
	newID  func() string
}

// NewAuthService creates a service. google may be nil, in which case Google
// sign-in is rejected.
func NewAuthService(users UserStore, tokens TokenIssuer, google GoogleVerifier, clk clock.Clock) *AuthService {
	if clk == nil {
		clk = clock.System{}
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		google: google,
		clock:  clk,
		newID:  uuid.NewString,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an email account, or links a password to an existing
// Google-only account with the same email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, core.NewValidationError("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return Session{}, core.NewValidationError("password", "password must be at least 6 characters")
	}
	name := strings.TrimSpace(in.Name)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.Now()

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.AuthProvider != core.ProviderGoogle {
			return Session{}, core.NewError(core.ErrConflict, "Email already registered")
		}
		existing.PasswordHash = string(hash)
		existing.AuthProvider = core.ProviderLinked
		if name != "" && existing.Name == "" {
			existing.Name = name
		}
		existing.UpdatedAt = now
		if err := s.users.UpdateUser(ctx, existing); err != nil {
			return Session{}, fmt.Errorf("link account: %w", err)
		}
		slog.InfoContext(ctx, "Linked password to Google account", "user_id", existing.ID)
		return s.session(existing, true)
	case !errors.Is(err, core.ErrNotFound):
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if name == "" {
		return Session{}, core.NewValidationError("name", "name is required")
	}
	user := core.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		AuthProvider: core.ProviderEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return Session{}, core.NewError(core.ErrConflict, "Email already registered")
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return s.session(user, false)
}

// Login checks an email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	invalid := core.NewError(core.ErrUnauthorized, "Invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, invalid
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.HasPassword() {
		return Session{}, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, invalid
	}
	return s.session(user, user.AccountLinked())
}

// GoogleSignIn verifies a Google ID token and signs the matching user in,
// creating or linking the account as needed.
func (s *AuthService) GoogleSignIn(ctx context.Context, idToken string) (Session, error) {
	if s.google == nil {
		return Session{}, core.NewError(core.ErrUnauthorized, "Invalid Google token")
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		slog.WarnContext(ctx, "Google token rejected", "error", err)
		return Session{}, core.NewError(core.ErrUnauthorized, "Invalid Google token")
	}
	email := normalizeEmail(identity.Email)
	if email == "" {
		return Session{}, core.NewValidationError("idToken", "Google account has no email")
	}
	now := s.clock.Now()

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		name := strings.TrimSpace(identity.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		user = core.User{
			ID:           s.newID(),
			Email:        email,
			GoogleID:     identity.Subject,
			Name:         name,
			AuthProvider: core.ProviderGoogle,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return Session{}, fmt.Errorf("create user: %w", err)
		}
		slog.InfoContext(ctx, "User registered with Google", "user_id", user.ID)
		return s.session(user, false)
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	changed := false
	if user.AuthProvider == core.ProviderEmail {
		user.AuthProvider = core.ProviderLinked
		changed = true
	}
	if user.GoogleID != identity.Subject {
		user.GoogleID = identity.Subject
		changed = true
	}
	if changed {
		user.UpdatedAt = now
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return Session{}, fmt.Errorf("update user: %w", err)
		}
	}
	return s.session(user, user.AccountLinked())
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, userID string) (core.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.NewError(core.ErrNotFound, "User not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes display names.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (core.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return core.User{}, core.NewValidationError("name", "name cannot be empty")
		}
		user.Name = name
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the user and everything they own.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.Me(ctx, userID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	slog.InfoContext(ctx, "Account deleted", "user_id", userID)
	return nil
}

func (s *AuthService) session(user core.User, linked bool) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: user, Token: token, AccountLinked: linked}, nil
}
