package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"safetysos/internal/auth"
	apperrors "safetysos/internal/errors"
	"safetysos/internal/mailer"
	"safetysos/internal/metrics"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	// maxPasswordBytes is the bcrypt input limit.
	maxPasswordBytes = 72

	msgCheckEmail = "Registration successful. Please check your email to verify your account."
	msgRegistered = "Registration successful."
)

// RegisterInput carries the registration form. At least one of Email and EmployeeID is required.
type RegisterInput struct {
	Email      string
	EmployeeID string
	Password   string
	Name       string
}

// RegisterResult is returned by Register. Token is only set for accounts that need no verification.
type RegisterResult struct {
	User                 *model.User
	Message              string
	RequiresVerification bool
	Token                string
}

// LoginInput identifies the account by email or, when email is empty, by employee ID.
type LoginInput struct {
	Email      string
	EmployeeID string
	Password   string
}

// LoginResult carries the session token.
type LoginResult struct {
	Token string
	User  *model.User
}

// AuthOptions configures verification emails.
type AuthOptions struct {
	VerificationTTL time.Duration
	FrontendURL     string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	VerifyEmail(ctx context.Context, token string) (*model.User, error)
	ResendVerification(ctx context.Context, email string) error
	// Authenticate validates a bearer token and returns its claims.
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	// Logout revokes the token the claims were parsed from.
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	mail       mailer.Sender
	opts       AuthOptions
	log        *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	mail mailer.Sender,
	opts AuthOptions,
	log *zap.Logger,
	m *metrics.Metrics,
) AuthService {
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = defaultVerificationTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		mail:       mail,
		opts:       opts,
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

// Register creates a new account with hashed password.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	employeeID := strings.TrimSpace(in.EmployeeID)
	if in.Password == "" || (email == "" && employeeID == "") {
		return nil, apperrors.ErrMissingCredentials
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, apperrors.ErrPasswordTooLong
	}

	if email != "" {
		if err := s.ensureFree(s.users.FindByEmail(ctx, email)); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, apperrors.ErrEmailTaken
			}
			return nil, fmt.Errorf("check email: %w", err)
		}
	}
	if employeeID != "" {
		if err := s.ensureFree(s.users.FindByEmployeeID(ctx, employeeID)); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, apperrors.ErrEmployeeIDTaken
			}
			return nil, fmt.Errorf("check employee ID: %w", err)
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         model.RoleEmployee,
	}
	if employeeID != "" {
		user.EmployeeID = &employeeID
	}
	if email != "" {
		user.Email = &email
		if err := s.issueVerificationToken(user, now); err != nil {
			return nil, err
		}
	} else {
		user.EmailVerified = true
		user.VerifiedAt = &now
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if email != "" {
				return nil, apperrors.ErrEmailTaken
			}
			return nil, apperrors.ErrEmployeeIDTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.AuthEvent("register", "success")

	if email != "" {
		s.sendVerification(ctx, user)
		return &RegisterResult{
			User:                 user,
			Message:              msgCheckEmail,
			RequiresVerification: true,
		}, nil
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &RegisterResult{User: user, Message: msgRegistered, Token: token}, nil
}

// Login authenticates by email or employee ID and issues a session token.
func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(in.Email)
	employeeID := strings.TrimSpace(in.EmployeeID)
	if in.Password == "" || (email == "" && employeeID == "") {
		return nil, apperrors.ErrMissingCredentials
	}

	var (
		user *model.User
		err  error
	)
	if email != "" {
		user, err = s.users.FindByEmail(ctx, email)
	} else {
		user, err = s.users.FindByEmployeeID(ctx, employeeID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthEvent("login", "invalid_credentials")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		s.metrics.AuthEvent("login", "invalid_credentials")
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.RequiresVerification() {
		s.metrics.AuthEvent("login", "unverified")
		return nil, apperrors.ErrEmailNotVerified
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	s.metrics.AuthEvent("login", "success")
	return &LoginResult{Token: token, User: user}, nil
}

// VerifyEmail marks the account holding token as verified. Tokens are single use.
func (s *authService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidVerificationToken
	}
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidVerificationToken
		}
		return nil, fmt.Errorf("find verification token: %w", err)
	}

	now := s.now().UTC()
	if user.VerificationTokenExpiry != nil && now.After(*user.VerificationTokenExpiry) {
		return nil, apperrors.ErrVerificationTokenExpired
	}

	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpiry = nil
	user.VerifiedAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.metrics.AuthEvent("verify_email", "success")
	return user, nil
}

// ResendVerification rotates the verification token and sends it again.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ErrEmailRequired
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.EmailVerified {
		return apperrors.ErrEmailAlreadyVerified
	}

	if err := s.issueVerificationToken(user, s.now().UTC()); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.sendVerification(ctx, user)
	return nil
}

// Authenticate validates the token signature and expiry, then checks revocation and that the user still exists.
func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, apperrors.ErrMissingToken
	}
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	revoked, err := s.tokenStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.ErrInvalidToken
	}

	if _, err := s.users.FindByID(ctx, claims.UserID()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return claims, nil
}

// Logout blacklists the token until its natural expiry.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrInvalidToken
	}
	if err := s.tokenStore.Revoke(ctx, claims.ID, claims.TTL(s.now())); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.metrics.AuthEvent("logout", "success")
	return nil
}

// ensureFree turns a lookup result into ErrDuplicate when a record was found.
func (s *authService) ensureFree(_ *model.User, err error) error {
	switch {
	case err == nil:
		return repository.ErrDuplicate
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *authService) issueVerificationToken(user *model.User, now time.Time) error {
	token, err := auth.NewVerificationToken()
	if err != nil {
		return err
	}
	expiry := now.Add(s.opts.VerificationTTL)
	user.VerificationToken = &token
	user.VerificationTokenExpiry = &expiry
	return nil
}

// sendVerification dispatches the verification email. Failures are logged, never returned.
func (s *authService) sendVerification(ctx context.Context, user *model.User) {
	if s.mail == nil || user.Email == nil || user.VerificationToken == nil {
		return
	}
	msg := mailer.NewVerificationMessage(s.opts.FrontendURL, *user.Email, user.Name, *user.VerificationToken)
	if err := s.mail.Send(ctx, msg); err != nil {
		s.metrics.SideEffectFailed("email")
		s.log.Error("failed to send verification email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}
