package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/court"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestEnsureCourtExisting(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM high_courts").
		WithArgs("Delhi High Court", "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	ref, err := store.EnsureCourt(context.Background(), "Delhi High Court", "", "https://hc.example.in", "delhi")
	require.NoError(t, err)
	assert.Equal(t, int64(3), ref.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCourtInsertsNewRow(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM high_courts").
		WithArgs("Karnataka High Court", "").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO high_courts").
		WithArgs("Karnataka High Court", "", "https://khc.example.in", "karnataka").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	ref, err := store.EnsureCourt(context.Background(), "Karnataka High Court", "", "https://khc.example.in", "karnataka")
	require.NoError(t, err)
	assert.Equal(t, int64(7), ref.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCourtAttachesBench(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM high_courts").
		WithArgs("Bombay High Court", "Aurangabad").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("UPDATE high_courts SET bench").
		WithArgs("Aurangabad", "Bombay High Court").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT id FROM high_courts").
		WithArgs("Bombay High Court", "Aurangabad").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))

	ref, err := store.EnsureCourt(context.Background(), "Bombay High Court", "Aurangabad", "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), ref.ID)
	assert.Equal(t, "Aurangabad", ref.Bench)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCaseInserts(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	ref := court.CourtRef{ID: 3, Name: "Delhi High Court"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, document_links FROM case_metadata").
		WithArgs(ref.ID, "W.P. 1/2025").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO case_metadata").
		WithArgs(ref.ID, "W.P. 1/2025", "01-01-2025", "A VS B", []byte(`["https://x/a.pdf"]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome, err := store.UpsertCase(context.Background(), ref, "W.P. 1/2025", "01-01-2025", "A VS B", "https://x/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, court.OutcomeInserted, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCaseAppendsLink(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	ref := court.CourtRef{ID: 3}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, document_links FROM case_metadata").
		WithArgs(ref.ID, "W.P. 1/2025").
		WillReturnRows(pgxmock.NewRows([]string{"id", "document_links"}).
			AddRow(int64(11), []byte(`["https://x/a.pdf"]`)))
	mock.ExpectExec("UPDATE case_metadata").
		WithArgs([]byte(`["https://x/a.pdf","https://x/b.pdf"]`), int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	outcome, err := store.UpsertCase(context.Background(), ref, "W.P. 1/2025", "01-01-2025", "", "https://x/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, court.OutcomeLinkAdded, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCaseDuplicate(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	ref := court.CourtRef{ID: 3}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, document_links FROM case_metadata").
		WithArgs(ref.ID, "W.P. 1/2025").
		WillReturnRows(pgxmock.NewRows([]string{"id", "document_links"}).
			AddRow(int64(11), []byte(`["https://x/a.pdf"]`)))
	mock.ExpectCommit()

	outcome, err := store.UpsertCase(context.Background(), ref, "W.P. 1/2025", "01-01-2025", "", "https://x/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, court.OutcomeDuplicate, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingExpandsLinks(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	ref := court.CourtRef{ID: 3}

	mock.ExpectQuery("SELECT id, case_id, document_links FROM case_metadata").
		WithArgs(ref.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "case_id", "document_links"}).
			AddRow(int64(1), "C1", []byte(`["https://x/a.pdf"]`)).
			AddRow(int64(2), "C2", []byte(`["https://x/b.pdf","https://x/c.pdf"]`)))

	pending, err := store.ListPending(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, int64(2), pending[1].RecordID)
	assert.Equal(t, 0, pending[1].LinkOrdinal)
	assert.Equal(t, 1, pending[2].LinkOrdinal)
	assert.Equal(t, 2, pending[2].LinkCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkArchived(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE case_metadata SET archived").
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkArchived(context.Background(), 11))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkArchivedUnknownRecord(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE case_metadata SET archived").
		WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.Error(t, store.MarkArchived(context.Background(), 12))
	require.NoError(t, mock.ExpectationsWereMet())
}
