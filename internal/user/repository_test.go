package user

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "password_hash", "first_name", "last_name", "phone_number", "role", "last_sign_in_at", "created_at", "updated_at"}

func setupUserMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), mock
}

func TestCreateAndFindUser(t *testing.T) {
	repo, mock := setupUserMock(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (email, password_hash, first_name, last_name, phone_number, role)")).
		WithArgs("meera@example.com", sql.NullString{String: "hash", Valid: true}, "Meera", "Iyer", "+91 98450 00000", "user").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "meera@example.com", "hash", "Meera", "Iyer", "+91 98450 00000", "user", nil, now, now))

	u, err := repo.Create(ctx, NewUser{
		Email:        "meera@example.com",
		PasswordHash: "hash",
		FirstName:    "Meera",
		LastName:     "Iyer",
		PhoneNumber:  "+91 98450 00000",
		Role:         "user",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)
	assert.True(t, u.PasswordHash.Valid)
	assert.Nil(t, u.LastSignInAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("meera@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "meera@example.com", "hash", "Meera", "Iyer", "+91 98450 00000", "user", now, now, now))

	fu, err := repo.FindByEmail(ctx, "meera@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Meera Iyer", fu.FullName())
	assert.NotNil(t, fu.LastSignInAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("meera@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.EmailExists(ctx, "meera@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_CodeOnlyAccount(t *testing.T) {
	repo, mock := setupUserMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("new@example.com", sql.NullString{}, "", "", "", "user").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(2, "new@example.com", nil, "", "", "", "user", nil, now, now))

	u, err := repo.Create(context.Background(), NewUser{Email: "new@example.com", Role: "user"})
	require.NoError(t, err)
	assert.False(t, u.PasswordHash.Valid)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), NewUser{Email: "meera@example.com", Role: "user"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(404).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	repo, mock := setupUserMock(t)
	now := time.Now()
	first := "Meenakshi"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs(1, sql.NullString{String: "Meenakshi", Valid: true}, sql.NullString{}, sql.NullString{}).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "meera@example.com", "hash", "Meenakshi", "Iyer", "+91 98450 00000", "user", nil, now, now))

	u, err := repo.UpdateProfile(context.Background(), 1, UpdateProfileRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Meenakshi", u.FirstName)
	assert.Equal(t, "Iyer", u.LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile_NotFound(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateProfile(context.Background(), 9, UpdateProfileRequest{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTouchSignIn(t *testing.T) {
	repo, mock := setupUserMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_sign_in_at = NOW() WHERE id = $1")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.TouchSignIn(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
