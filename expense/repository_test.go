package expense

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expenseColumns = []string{
	"id", "owner_id", "expense_detail_id", "name", "amount", "paid_amount", "pending_amount",
	"expense_date", "due_date", "status", "notes", "attachment_url", "created_at", "updated_at",
}

func TestRepositoryPayLocksExpenseRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	owner, id := uuid.New(), uuid.New()
	now := time.Now().UTC()
	due := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM expenses e (.+) FOR UPDATE OF e`).
		WithArgs(id, owner).
		WillReturnRows(sqlmock.NewRows(expenseColumns).
			AddRow(id.String(), owner.String(), uuid.New().String(), "Rent", "100.00", "0.00", "100.00",
				due, due, "upcoming", "", "", now, now))
	mock.ExpectExec("INSERT INTO expense_payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE expenses SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(NewRepository(db), nil, WithClock(func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}))
	_, e, err := svc.Pay(context.Background(), owner, id, PaymentInput{Amount: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, e.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPayRollsBackRejectedPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	owner, id := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FOR UPDATE OF e`).
		WithArgs(id, owner).
		WillReturnRows(sqlmock.NewRows(expenseColumns).
			AddRow(id.String(), owner.String(), uuid.New().String(), "Rent", "100.00", "90.00", "10.00",
				now, now, "partial", "", "", now, now))
	mock.ExpectRollback()

	svc := NewService(NewRepository(db), nil)
	_, _, err = svc.Pay(context.Background(), owner, id, PaymentInput{Amount: dec("10.01")})
	assert.ErrorIs(t, err, ledger.ErrInvalidPayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM expenses e").WillReturnRows(sqlmock.NewRows(expenseColumns))

	_, err = NewService(NewRepository(db), nil).Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositorySaveStatusGuardsAmounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	owner, id := uuid.New(), uuid.New()
	now := time.Now().UTC()
	due := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM expenses e").
		WithArgs(id, owner).
		WillReturnRows(sqlmock.NewRows(expenseColumns).
			AddRow(id.String(), owner.String(), uuid.New().String(), "Rent", "100.00", "0.00", "100.00",
				due, due, "upcoming", "", "", now, now))
	mock.ExpectExec(`UPDATE expenses SET status = \$1 WHERE id = \$2 AND paid_amount = \$3 AND amount = \$4`).
		WithArgs("overdue", id.String(), "0", "100").
		WillReturnResult(sqlmock.NewResult(0, 0))

	svc := NewService(NewRepository(db), nil, WithClock(func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}))
	e, err := svc.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOverdue, e.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
