package eventlogger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLogger struct {
	mu     sync.Mutex
	events []Event
}

func (m *memLogger) Save(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memLogger) GetByType(_ context.Context, eventType string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLogger) GetByOwner(_ context.Context, ownerID uuid.UUID, eventType string, _ int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Metadata[MetadataOwner] == ownerID.String() && (eventType == "" || e.Type == eventType) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestNewEventOptions(t *testing.T) {
	owner := uuid.New()
	e := NewEvent(
		WithType("debt.payment_registered"),
		WithData(map[string]string{"amount": "10.00"}),
		WithMetadata(map[string]string{"source": "api"}),
		WithOwner(owner),
	)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, "debt.payment_registered", e.Type)
	assert.Equal(t, "api", e.Metadata["source"])
	assert.Equal(t, owner.String(), e.Metadata[MetadataOwner])
	assert.WithinDuration(t, time.Now(), e.CreatedAt, time.Minute)
}

func TestWorkerDrainsOnShutdown(t *testing.T) {
	store := &memLogger{}
	w := NewWorker(store, 10)
	w.Start()

	for i := 0; i < 5; i++ {
		w.Log(NewEvent(WithType("expense.created")))
	}
	w.Shutdown()

	got, err := store.GetByType(context.Background(), "expense.created")
	require.NoError(t, err)
	assert.Len(t, got, 5)

	// after shutdown events are dropped instead of panicking
	assert.NotPanics(t, func() { w.Log(NewEvent(WithType("late"))) })
}

func TestWorkerDropsWhenFull(t *testing.T) {
	store := &memLogger{}
	w := NewWorker(store, 1)

	w.Log(NewEvent(WithType("a")))
	w.Log(NewEvent(WithType("b")))

	w.Start()
	w.Shutdown()

	assert.Len(t, store.events, 1)
	assert.Equal(t, "a", store.events[0].Type)
}

func TestSqlEventLoggerSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := NewEvent(WithType("debt.created"), WithData(map[string]string{"k": "v"}))
	mock.ExpectExec("INSERT INTO events").
		WithArgs(e.ID, e.Type, []byte(`{"k":"v"}`), []byte(`{}`), e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewSqlEventLogger(db).Save(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlEventLoggerGetByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	owner := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "event_type", "event_data", "event_metadata", "created_at"}).
		AddRow(uuid.New().String(), "debt.created", []byte(`{"total":"500"}`), []byte(`{"owner_id":"`+owner.String()+`"}`), now)
	mock.ExpectQuery("SELECT (.+) FROM events").WithArgs(owner.String(), "", 50).WillReturnRows(rows)

	events, err := NewSqlEventLogger(db).GetByOwner(context.Background(), owner, "", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, owner.String(), events[0].Metadata[MetadataOwner])

	raw, err := json.Marshal(events[0].Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"500"}`, string(raw))
}
