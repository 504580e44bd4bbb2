package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "first_name", "last_name", "is_active", "password_hash", "created_at", "updated_at"}

func TestRegister(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "ana@example.com", "Ana", "Souza", true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(db)
	u, err := repo.Register(context.Background(), Registration{
		Email:     "  Ana@Example.com ",
		Password:  "secret123",
		FirstName: "Ana",
		LastName:  "Souza",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.NoError(t, repo.VerifyPassword(u.PasswordHash, "secret123"))
	assert.Error(t, repo.VerifyPassword(u.PasswordHash, "wrong"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
		want error
	}{
		{"blank email", Registration{Password: "secret123"}, ErrInvalidEmail},
		{"malformed email", Registration{Email: "not-an-email", Password: "secret123"}, ErrInvalidEmail},
		{"blank password", Registration{Email: "a@b.com"}, ErrBlankPassword},
		{"short password", Registration{Email: "a@b.com", Password: "123"}, ErrShortPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			_, err = NewRepository(db).Register(context.Background(), tt.reg)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	_, err = NewRepository(db).Register(context.Background(), Registration{Email: "a@b.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(id.String(), "ana@example.com", "Ana", "", false, "hash", now, now))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	repo := NewRepository(db)
	u, err := repo.GetByEmail(context.Background(), "ANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.False(t, u.IsActive)
	assert.Equal(t, "Ana", u.FullName())

	u, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpdatePassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRepository(db)
	require.NoError(t, repo.UpdatePassword(context.Background(), id, "newsecret"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), uuid.New(), "newsecret"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), id, ""), ErrBlankPassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}
