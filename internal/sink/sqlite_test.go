package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-parser/internal/record"
)

func openTestSink(t *testing.T, path string) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cv.db")
	s := openTestSink(t, path)

	role := "Engineer at Foo"
	first := record.CandidateRecord{CandidateID: 1001, FileName: "a.pdf", Skills: []string{"Go", "SQL"}, CurrentRole: &role, TotalExperience: 1.25}
	second := record.CandidateRecord{CandidateID: 1002, FileName: "b.docx"}

	require.NoError(t, s.AppendRow(ctx, first.Flatten()))
	require.NoError(t, s.AppendRow(ctx, second.Flatten()))

	rows, err := s.Rows(ctx, s.RunID())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, first.Map(), rows[0].Values)
	assert.Equal(t, second.Map(), rows[1].Values)
	assert.Equal(t, "Go; SQL", rows[0].Values["skills"])
	assert.Equal(t, s.RunID(), rows[0].RunID)
	assert.NotEmpty(t, rows[0].CreatedAt)
}

func TestSQLiteRunsAreSeparated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cv.db")

	a := openTestSink(t, path)
	require.NoError(t, a.AppendRow(ctx, record.CandidateRecord{CandidateID: 1}.Flatten()))
	require.NoError(t, a.Close())

	b := openTestSink(t, path)
	require.NoError(t, b.AppendRow(ctx, record.CandidateRecord{CandidateID: 2}.Flatten()))
	assert.NotEqual(t, a.RunID(), b.RunID())

	own, err := b.Rows(ctx, b.RunID())
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "2", own[0].Values["candidate_id"])

	all, err := b.Rows(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteColumnMismatch(t *testing.T) {
	s := openTestSink(t, filepath.Join(t.TempDir(), "cv.db"))

	err := s.AppendRow(context.Background(), []string{"1001", "a.pdf"})
	assert.True(t, errors.Is(err, ErrColumnMismatch), "got %v", err)

	rows, err := s.Rows(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteSurfacesDatabaseErrors(t *testing.T) {
	s := openTestSink(t, filepath.Join(t.TempDir(), "cv.db"))
	require.NoError(t, s.Close())

	err := s.AppendRow(context.Background(), record.CandidateRecord{}.Flatten())
	assert.Error(t, err)
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), " ")
	assert.Error(t, err)
}

var _ Sink = (*SQLite)(nil)
