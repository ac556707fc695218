package migration

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtodocs/internal/model"
)

func expectLedger(mock sqlmock.Sqlmock, applied ...string) {
	mock.ExpectExec(regexp.QuoteMeta(createLedger)).WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"name"})
	for _, name := range applied {
		rows.AddRow(name)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).WillReturnRows(rows)
}

func expectStep(mock sqlmock.Sqlmock, step migrationStep) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(step.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(recordApplied)).WithArgs(step.Name).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func stepNames() []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh database runs every step", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectLedger(mock)
		for _, step := range steps {
			expectStep(mock, step)
		}

		require.NoError(t, EnsureMigrated(ctx, db, time.UTC, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fully migrated database runs nothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectLedger(mock, stepNames()...)

		require.NoError(t, EnsureMigrated(ctx, db, time.UTC, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("older schema only gets the missing steps", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectLedger(mock, steps[0].Name, steps[1].Name)
		for _, step := range steps[2:] {
			expectStep(mock, step)
		}

		require.NoError(t, EnsureMigrated(ctx, db, nil, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("step failure rolls back and stops", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectLedger(mock)
		expectStep(mock, steps[0])
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(steps[1].SQL)).WillReturnError(errors.New(`relation "users" does not exist`))
		mock.ExpectRollback()

		err = EnsureMigrated(ctx, db, time.UTC, "localhost")
		assert.ErrorContains(t, err, "migration step 0002_create_table_documents failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ledger failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(createLedger)).WillReturnError(errors.New("conn refused"))

		err = EnsureMigrated(ctx, db, nil, "localhost")
		assert.ErrorContains(t, err, "create migration ledger: conn refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStepNamesAreUniqueAndOrdered(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for _, s := range steps {
		assert.False(t, seen[s.Name], "duplicate step %s", s.Name)
		assert.Greater(t, s.Name, prev)
		seen[s.Name] = true
		prev = s.Name
	}
}

func TestDocumentTypeConstraintCoversEveryType(t *testing.T) {
	var check string
	for _, s := range steps {
		if s.Name == "0007_check_documents_document_type" {
			check = s.SQL
		}
	}
	require.NotEmpty(t, check)

	for _, dt := range []model.DocumentType{
		model.DocAadhaar, model.DocPAN, model.DocAddressProof, model.DocPhoto,
		model.DocSignature, model.DocInsurance, model.DocOther,
	} {
		assert.True(t, strings.Contains(check, "'"+string(dt)+"'"), "constraint misses %s", dt)
	}
	assert.Equal(t, 14, strings.Count(check, "'"), "constraint lists exactly seven types")
}
