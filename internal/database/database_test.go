package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDBTX is a mock implementation of DBTX for interface verification.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func TestDBTXInterface(t *testing.T) {
	// Compile-time check that arbitrary implementations satisfy DBTX.
	var _ DBTX = (*mockDBTX)(nil)
}

func TestWithTransaction(t *testing.T) {
	t.Run("commits when the function succeeds", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE review_workflow_states").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			_, execErr := tx.Exec(context.Background(), "UPDATE review_workflow_states SET status = 'approved'")
			return execErr
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the original error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		fnErr := errors.New("resolution failed")
		err = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			return fnErr
		})

		assert.ErrorIs(t, err, fnErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps begin failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			t.Fatal("function must not run without a transaction")
			return nil
		})

		assert.ErrorContains(t, err, "failed to begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps commit failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			return nil
		})

		assert.ErrorContains(t, err, "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAcquireAdvisoryLockTx(t *testing.T) {
	t.Run("acquires the transaction-scoped lock", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(int64(42)).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectCommit()

		err = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			return AcquireAdvisoryLockTx(context.Background(), tx, 42)
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates lock errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(int64(42)).
			WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			return AcquireAdvisoryLockTx(context.Background(), tx, 42)
		})

		assert.ErrorContains(t, err, "lock timeout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHealthStatusSerialization(t *testing.T) {
	t.Run("healthy status omits error field", func(t *testing.T) {
		health := HealthStatus{
			Status:     "healthy",
			TotalConns: 10,
			IdleConns:  5,
			MaxConns:   25,
		}

		data, err := json.Marshal(health)
		require.NoError(t, err)

		assert.Contains(t, string(data), `"status":"healthy"`)
		assert.NotContains(t, string(data), `"error"`)
	})

	t.Run("unhealthy status includes error field", func(t *testing.T) {
		health := HealthStatus{
			Status: "unhealthy",
			Error:  "connection refused",
		}

		data, err := json.Marshal(health)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "unhealthy", decoded["status"])
		assert.Equal(t, "connection refused", decoded["error"])
	})
}
