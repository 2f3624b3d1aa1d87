package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "data.json")
	s := New(path, zerolog.Nop())
	require.NoError(t, s.Init())
	return s, path
}

func TestInitCreatesFile(t *testing.T) {
	_, path := newStore(t)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(contents))
}

func TestAppendAndRetrieve(t *testing.T) {
	s, path := newStore(t)
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendReport(&Record{ID: "a", Title: "Primeiro", CreatedAt: base}))
	require.NoError(t, s.AppendReport(&Record{ID: "b", Title: "Segundo", CreatedAt: base.Add(time.Hour)}))

	assert.Equal(t, 2, s.GetReportCount())
	r, err := s.RetrieveReport("a")
	require.NoError(t, err)
	assert.Equal(t, "Primeiro", r.Title)

	_, err = s.RetrieveReport("missing")
	assert.ErrorIs(t, err, ErrReportNotFound)

	list := s.RetrieveReports()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	// A second store sees the persisted records:
	reopened := New(path, zerolog.Nop())
	require.NoError(t, reopened.Init())
	assert.Equal(t, 2, reopened.GetReportCount())
}

func TestRetrieveReturnsCopies(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.AppendReport(&Record{ID: "a", Title: "Original"}))
	r, err := s.RetrieveReport("a")
	require.NoError(t, err)
	r.Title = "Alterado"

	again, err := s.RetrieveReport("a")
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}

func TestDeleteReport(t *testing.T) {
	s, path := newStore(t)
	doc := filepath.Join(filepath.Dir(path), "a.docx")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))
	require.NoError(t, s.AppendReport(&Record{ID: "a", Path: doc}))

	require.NoError(t, s.DeleteReport("a"))
	assert.Equal(t, 0, s.GetReportCount())
	_, err := os.Stat(doc)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.DeleteReport("a"), ErrReportNotFound)
}

func TestInitRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	assert.Error(t, New(path, zerolog.Nop()).Init())
}

func TestAppendReportRollsBackOnSaveError(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.AppendReport(&Record{ID: "a", Title: "Original"}))

	// A directory in place of the temporary file makes every save fail:
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	assert.Error(t, s.AppendReport(&Record{ID: "b", Title: "Novo"}))
	assert.Equal(t, 1, s.GetReportCount())
	_, err := s.RetrieveReport("b")
	assert.ErrorIs(t, err, ErrReportNotFound)

	assert.Error(t, s.AppendReport(&Record{ID: "a", Title: "Substituto"}))
	r, err := s.RetrieveReport("a")
	require.NoError(t, err)
	assert.Equal(t, "Original", r.Title)
}
