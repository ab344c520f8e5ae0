package user

import (
	"context"
	"errors"
	"fmt"

	"karyalay/internal/auth"
	"karyalay/internal/logger"
	"karyalay/internal/metrics"
	"karyalay/internal/session"
)

const (
	methodPassword = "password"
	methodCode     = "otp"
)

type SessionRegistry interface {
	Create(ctx context.Context, userID int, email, role, method string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Destroy(ctx context.Context, id string) error
}

type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

type CodeMailer interface {
	SendSignInCode(ctx context.Context, to, code string) error
}

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	CurrentSession(ctx context.Context, id auth.Identity) (*SessionInfo, error)
	Logout(ctx context.Context, sessionID string) error
	GetByID(ctx context.Context, userID int) (*User, error)
	UpdateProfile(ctx context.Context, userID int, req UpdateProfileRequest) (*User, error)
}

type service struct {
	repo      Repository
	sessions  SessionRegistry
	codes     CodeStore
	mailer    CodeMailer
	jwtSecret string
}

func NewService(repo Repository, sessions SessionRegistry, codes CodeStore, mailer CodeMailer, jwtSecret string) Service {
	return &service{
		repo:      repo,
		sessions:  sessions,
		codes:     codes,
		mailer:    mailer,
		jwtSecret: jwtSecret,
	}
}

func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, NewUser{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Role:         auth.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user signed up", "user_id", user.ID)
	return s.openSession(ctx, user, methodPassword)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.RecordAuthAttempt(methodPassword, "failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.PasswordHash.Valid || !auth.CheckPassword(user.PasswordHash.String, req.Password) {
		metrics.RecordAuthAttempt(methodPassword, "failure")
		return nil, ErrInvalidCredentials
	}

	metrics.RecordAuthAttempt(methodPassword, "success")
	return s.openSession(ctx, user, methodPassword)
}

func (s *service) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendSignInCode(ctx, email, code); err != nil {
		return fmt.Errorf("queue sign-in code: %w", err)
	}
	return nil
}

// VerifyCode signs in with a one-time code, creating a code-only account the
// first time an address is seen.
func (s *service) VerifyCode(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)

	if err := s.codes.Verify(ctx, email, code); err != nil {
		metrics.RecordAuthAttempt(methodCode, "failure")
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.repo.Create(ctx, NewUser{Email: email, Role: auth.RoleUser})
		if err == nil {
			logger.Info("user created from sign-in code", "user_id", user.ID)
		}
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordAuthAttempt(methodCode, "success")
	return s.openSession(ctx, user, methodCode)
}

// Refresh issues a new access token for a refresh token whose session is
// still open and belongs to the token's user.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, session.ErrSessionNotFound
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	id := auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role, SessionID: claims.SessionID}
	tokens, err := auth.GenerateTokens(id, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, SessionID: claims.SessionID, Tokens: *tokens}, nil
}

func (s *service) CurrentSession(ctx context.Context, id auth.Identity) (*SessionInfo, error) {
	sess, err := s.sessions.Get(ctx, id.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != id.UserID {
		return nil, session.ErrSessionNotFound
	}

	user, err := s.repo.FindByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{Session: sess, User: user}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID int, req UpdateProfileRequest) (*User, error) {
	return s.repo.UpdateProfile(ctx, userID, req)
}

func (s *service) openSession(ctx context.Context, user *User, method string) (*AuthResult, error) {
	sess, err := s.sessions.Create(ctx, user.ID, user.Email, user.Role, method)
	if err != nil {
		return nil, err
	}

	id := auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role, SessionID: sess.ID}
	tokens, err := auth.GenerateTokens(id, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchSignIn(ctx, user.ID); err != nil {
		logger.Warn("failed to record sign-in time", "user_id", user.ID, "error", err)
	}

	return &AuthResult{User: user, SessionID: sess.ID, Tokens: *tokens}, nil
}
