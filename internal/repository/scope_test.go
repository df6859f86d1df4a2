package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgStoreInProcedureScope(t *testing.T) {
	procedureID := uuid.New()

	t.Run("commits after successful scope", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(advisoryLockKey(procedureID)).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectCommit()

		store := NewPgStore(mock)
		err = store.InProcedureScope(context.Background(), procedureID, func(stores ScopedStores) error {
			assert.NotNil(t, stores.Workflows)
			assert.NotNil(t, stores.Config)
			assert.NotNil(t, stores.Procedures)
			return nil
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when scope function fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(advisoryLockKey(procedureID)).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectRollback()

		scopeErr := errors.New("resolution failed")
		store := NewPgStore(mock)
		err = store.InProcedureScope(context.Background(), procedureID, func(stores ScopedStores) error {
			return scopeErr
		})

		assert.ErrorIs(t, err, scopeErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates lock acquisition failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(advisoryLockKey(procedureID)).
			WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		store := NewPgStore(mock)
		err = store.InProcedureScope(context.Background(), procedureID, func(stores ScopedStores) error {
			t.Fatal("scope function must not run without the lock")
			return nil
		})

		assert.ErrorContains(t, err, "failed to acquire procedure lock")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdvisoryLockKeyIsStable(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, advisoryLockKey(id), advisoryLockKey(id))
	assert.NotEqual(t, advisoryLockKey(id), advisoryLockKey(uuid.New()))
}
