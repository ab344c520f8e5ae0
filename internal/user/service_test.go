package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"karyalay/internal/auth"
	"karyalay/internal/otp"
	"karyalay/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "user-service-test-secret-0123456789"

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u NewUser) (*User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdateProfile(ctx context.Context, id int, req UpdateProfileRequest) (*User, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) TouchSignIn(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Create(ctx context.Context, userID int, email, role, method string) (*session.Session, error) {
	args := m.Called(ctx, userID, email, role, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessions) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessions) Destroy(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockCodes struct {
	mock.Mock
}

func (m *MockCodes) Issue(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockCodes) Verify(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendSignInCode(ctx context.Context, to, code string) error {
	return m.Called(ctx, to, code).Error(0)
}

type serviceMocks struct {
	repo     *MockRepository
	sessions *MockSessions
	codes    *MockCodes
	mailer   *MockMailer
}

func newTestService() (Service, serviceMocks) {
	m := serviceMocks{
		repo:     new(MockRepository),
		sessions: new(MockSessions),
		codes:    new(MockCodes),
		mailer:   new(MockMailer),
	}
	return NewService(m.repo, m.sessions, m.codes, m.mailer, testSecret), m
}

func openSession(id string, userID int) *session.Session {
	return &session.Session{ID: id, UserID: userID, Email: "meera@example.com", Role: auth.RoleUser, CreatedAt: time.Now()}
}

func hashed(t *testing.T, password string) sql.NullString {
	t.Helper()
	h, err := auth.HashPassword(password)
	require.NoError(t, err)
	return sql.NullString{String: h, Valid: true}
}

func TestService_SignUp(t *testing.T) {
	tests := []struct {
		name          string
		req           SignUpRequest
		setupMock     func(serviceMocks)
		expectedError error
	}{
		{
			name: "successful sign up",
			req: SignUpRequest{
				Email:       "Meera@Example.com",
				Password:    "password123",
				FirstName:   "Meera",
				LastName:    "Iyer",
				PhoneNumber: "+91 98450 00000",
			},
			setupMock: func(m serviceMocks) {
				m.repo.On("EmailExists", mock.Anything, "meera@example.com").Return(false, nil)
				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(u NewUser) bool {
					return u.Email == "meera@example.com" && u.PasswordHash != "" && u.PasswordHash != "password123" &&
						u.FirstName == "Meera" && u.Role == auth.RoleUser
				})).Return(&User{ID: 1, Email: "meera@example.com", FirstName: "Meera", Role: auth.RoleUser}, nil)
				m.sessions.On("Create", mock.Anything, 1, "meera@example.com", auth.RoleUser, "password").Return(openSession("s-1", 1), nil)
				m.repo.On("TouchSignIn", mock.Anything, 1).Return(nil)
			},
		},
		{
			name: "email already exists",
			req:  SignUpRequest{Email: "taken@example.com", Password: "password123"},
			setupMock: func(m serviceMocks) {
				m.repo.On("EmailExists", mock.Anything, "taken@example.com").Return(true, nil)
			},
			expectedError: ErrEmailExists,
		},
		{
			name: "session store down",
			req:  SignUpRequest{Email: "meera@example.com", Password: "password123"},
			setupMock: func(m serviceMocks) {
				m.repo.On("EmailExists", mock.Anything, "meera@example.com").Return(false, nil)
				m.repo.On("Create", mock.Anything, mock.Anything).Return(&User{ID: 1, Email: "meera@example.com", Role: auth.RoleUser}, nil)
				m.sessions.On("Create", mock.Anything, 1, "meera@example.com", auth.RoleUser, "password").Return(nil, errors.New("redis down"))
			},
			expectedError: errors.New("redis down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()
			tt.setupMock(m)

			result, err := svc.SignUp(context.Background(), tt.req)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "s-1", result.SessionID)
				assert.NotEmpty(t, result.AccessToken)
				assert.NotEmpty(t, result.RefreshToken)

				claims, err := auth.ValidateToken(result.AccessToken, testSecret)
				require.NoError(t, err)
				assert.Equal(t, "s-1", claims.SessionID)
			}
			m.repo.AssertExpectations(t)
			m.sessions.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	tests := []struct {
		name          string
		req           LoginRequest
		setupMock     func(*testing.T, serviceMocks)
		expectedError error
	}{
		{
			name: "successful login",
			req:  LoginRequest{Email: "meera@example.com", Password: "password123"},
			setupMock: func(t *testing.T, m serviceMocks) {
				m.repo.On("FindByEmail", mock.Anything, "meera@example.com").Return(&User{
					ID: 1, Email: "meera@example.com", PasswordHash: hashed(t, "password123"), Role: auth.RoleUser,
				}, nil)
				m.sessions.On("Create", mock.Anything, 1, "meera@example.com", auth.RoleUser, "password").Return(openSession("s-2", 1), nil)
				m.repo.On("TouchSignIn", mock.Anything, 1).Return(errors.New("ignored"))
			},
		},
		{
			name: "unknown email",
			req:  LoginRequest{Email: "ghost@example.com", Password: "password123"},
			setupMock: func(t *testing.T, m serviceMocks) {
				m.repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			req:  LoginRequest{Email: "meera@example.com", Password: "nope"},
			setupMock: func(t *testing.T, m serviceMocks) {
				m.repo.On("FindByEmail", mock.Anything, "meera@example.com").Return(&User{
					ID: 1, Email: "meera@example.com", PasswordHash: hashed(t, "password123"),
				}, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name: "code-only account has no password",
			req:  LoginRequest{Email: "meera@example.com", Password: "password123"},
			setupMock: func(t *testing.T, m serviceMocks) {
				m.repo.On("FindByEmail", mock.Anything, "meera@example.com").Return(&User{ID: 1, Email: "meera@example.com"}, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()
			tt.setupMock(t, m)

			result, err := svc.Login(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "s-2", result.SessionID)
			}
			m.repo.AssertExpectations(t)
		})
	}
}

func TestService_RequestCode(t *testing.T) {
	svc, m := newTestService()

	m.codes.On("Issue", mock.Anything, "meera@example.com").Return("123456", nil)
	m.mailer.On("SendSignInCode", mock.Anything, "meera@example.com", "123456").Return(nil)

	require.NoError(t, svc.RequestCode(context.Background(), " MEERA@example.com"))
	m.codes.AssertExpectations(t)
	m.mailer.AssertExpectations(t)
}

func TestService_RequestCode_MailerError(t *testing.T) {
	svc, m := newTestService()

	m.codes.On("Issue", mock.Anything, "meera@example.com").Return("123456", nil)
	m.mailer.On("SendSignInCode", mock.Anything, "meera@example.com", "123456").Return(errors.New("queue full"))

	assert.Error(t, svc.RequestCode(context.Background(), "meera@example.com"))
}

func TestService_VerifyCode_ExistingUser(t *testing.T) {
	svc, m := newTestService()

	m.codes.On("Verify", mock.Anything, "meera@example.com", "123456").Return(nil)
	m.repo.On("FindByEmail", mock.Anything, "meera@example.com").Return(&User{ID: 1, Email: "meera@example.com", Role: auth.RoleUser}, nil)
	m.sessions.On("Create", mock.Anything, 1, "meera@example.com", auth.RoleUser, "otp").Return(openSession("s-3", 1), nil)
	m.repo.On("TouchSignIn", mock.Anything, 1).Return(nil)

	result, err := svc.VerifyCode(context.Background(), "meera@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "s-3", result.SessionID)
	m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_VerifyCode_CreatesAccount(t *testing.T) {
	svc, m := newTestService()

	m.codes.On("Verify", mock.Anything, "new@example.com", "123456").Return(nil)
	m.repo.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, ErrUserNotFound)
	m.repo.On("Create", mock.Anything, NewUser{Email: "new@example.com", Role: auth.RoleUser}).Return(&User{ID: 5, Email: "new@example.com", Role: auth.RoleUser}, nil)
	m.sessions.On("Create", mock.Anything, 5, "new@example.com", auth.RoleUser, "otp").Return(openSession("s-4", 5), nil)
	m.repo.On("TouchSignIn", mock.Anything, 5).Return(nil)

	result, err := svc.VerifyCode(context.Background(), "new@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, 5, result.User.ID)
	m.repo.AssertExpectations(t)
}

func TestService_VerifyCode_Rejected(t *testing.T) {
	svc, m := newTestService()

	m.codes.On("Verify", mock.Anything, "meera@example.com", "000000").Return(otp.ErrCodeInvalid)

	_, err := svc.VerifyCode(context.Background(), "meera@example.com", "000000")
	assert.ErrorIs(t, err, otp.ErrCodeInvalid)
	m.repo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestService_Refresh(t *testing.T) {
	svc, m := newTestService()
	id := auth.Identity{UserID: 1, Email: "meera@example.com", Role: auth.RoleUser, SessionID: "s-5"}
	refresh, err := auth.GenerateRefreshToken(id, testSecret)
	require.NoError(t, err)

	m.sessions.On("Get", mock.Anything, "s-5").Return(openSession("s-5", 1), nil)
	m.repo.On("FindByID", mock.Anything, 1).Return(&User{ID: 1, Email: "meera@example.com", Role: auth.RoleAdmin}, nil)

	result, err := svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(result.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "s-5", claims.SessionID)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestService_Refresh_AfterLogout(t *testing.T) {
	svc, m := newTestService()
	id := auth.Identity{UserID: 1, Email: "meera@example.com", Role: auth.RoleUser, SessionID: "s-6"}
	refresh, _ := auth.GenerateRefreshToken(id, testSecret)

	m.sessions.On("Destroy", mock.Anything, "s-6").Return(nil)
	m.sessions.On("Get", mock.Anything, "s-6").Return(nil, session.ErrSessionNotFound)

	require.NoError(t, svc.Logout(context.Background(), "s-6"))

	_, err := svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	m.repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestService_Refresh_SessionOfAnotherUser(t *testing.T) {
	svc, m := newTestService()
	id := auth.Identity{UserID: 1, Email: "meera@example.com", Role: auth.RoleUser, SessionID: "s-10"}
	refresh, err := auth.GenerateRefreshToken(id, testSecret)
	require.NoError(t, err)

	m.sessions.On("Get", mock.Anything, "s-10").Return(openSession("s-10", 2), nil)

	_, err = svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	m.repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _ := newTestService()
	access, _ := auth.GenerateAccessToken(auth.Identity{UserID: 1, SessionID: "s-7"}, testSecret)

	_, err := svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, auth.ErrInvalidTokenType)
}

func TestService_CurrentSession(t *testing.T) {
	svc, m := newTestService()

	m.sessions.On("Get", mock.Anything, "s-8").Return(openSession("s-8", 1), nil)
	m.repo.On("FindByID", mock.Anything, 1).Return(&User{ID: 1, Email: "meera@example.com"}, nil)

	info, err := svc.CurrentSession(context.Background(), auth.Identity{UserID: 1, SessionID: "s-8"})
	require.NoError(t, err)
	assert.Equal(t, "s-8", info.Session.ID)
	assert.Equal(t, 1, info.User.ID)
}

func TestService_CurrentSession_OtherUser(t *testing.T) {
	svc, m := newTestService()

	m.sessions.On("Get", mock.Anything, "s-9").Return(openSession("s-9", 2), nil)

	_, err := svc.CurrentSession(context.Background(), auth.Identity{UserID: 1, SessionID: "s-9"})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, m := newTestService()
	phone := "+91 90000 11111"
	req := UpdateProfileRequest{PhoneNumber: &phone}

	m.repo.On("UpdateProfile", mock.Anything, 1, req).Return(&User{ID: 1, PhoneNumber: phone}, nil)

	u, err := svc.UpdateProfile(context.Background(), 1, req)
	require.NoError(t, err)
	assert.Equal(t, phone, u.PhoneNumber)
}
