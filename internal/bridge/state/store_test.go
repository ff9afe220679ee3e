package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "bridge.db"))
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestion_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.GetIngestion("/notes/a.note")
	require.NoError(t, err)
	assert.Nil(t, rec, "unknown path should return nil record")

	docID := int64(12)
	require.NoError(t, s.UpsertIngestion(&IngestionRecord{
		NotePath:    "/notes/a.note",
		MtimeNanos:  1710000000123456789,
		ContentHash: "abc123",
		DocumentID:  &docID,
	}))

	rec, err = s.GetIngestion("/notes/a.note")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1710000000123456789), rec.MtimeNanos)
	assert.Equal(t, "abc123", rec.ContentHash)
	require.NotNil(t, rec.DocumentID)
	assert.Equal(t, docID, *rec.DocumentID)
	assert.False(t, rec.IngestedAt.IsZero())
}

func TestIngestion_UpsertOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertIngestion(&IngestionRecord{
		NotePath:   "/notes/a.note",
		MtimeNanos: 100,
	}))

	docID := int64(7)
	require.NoError(t, s.UpsertIngestion(&IngestionRecord{
		NotePath:    "/notes/a.note",
		MtimeNanos:  200,
		ContentHash: "h2",
		DocumentID:  &docID,
	}))

	rec, err := s.GetIngestion("/notes/a.note")
	require.NoError(t, err)
	assert.Equal(t, int64(200), rec.MtimeNanos)
	assert.Equal(t, "h2", rec.ContentHash)
	require.NotNil(t, rec.DocumentID)
	assert.Equal(t, docID, *rec.DocumentID)
}

func TestIngestion_NilDocumentID(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertIngestion(&IngestionRecord{
		NotePath:   "/notes/b.note",
		MtimeNanos: 1,
	}))

	rec, err := s.GetIngestion("/notes/b.note")
	require.NoError(t, err)
	assert.Nil(t, rec.DocumentID)
}

func TestExport_RoundTripAndDelete(t *testing.T) {
	s := openTestStore(t)

	ids, err := s.GetExportedIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.UpsertExport(&ExportRecord{
		DocumentID: 4,
		LocalPath:  "/sn/Document/Paperless/a.pdf",
		Checksum:   "deadbeefdeadbeef",
	}))
	require.NoError(t, s.UpsertExport(&ExportRecord{
		DocumentID: 5,
		LocalPath:  "/sn/Document/Paperless/b.pdf",
	}))

	ids, err = s.GetExportedIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{4, 5}, ids)

	path, ok, err := s.GetExportPath(4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/sn/Document/Paperless/a.pdf", path)

	_, ok, err = s.GetExportPath(999)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteExport(4))
	ids, err = s.GetExportedIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5}, ids)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bridge.db")

	s := NewStore(dbPath)
	require.NoError(t, s.Open())
	require.NoError(t, s.UpsertIngestion(&IngestionRecord{NotePath: "/n.note", MtimeNanos: 42}))
	require.NoError(t, s.Close())

	s2 := NewStore(dbPath)
	require.NoError(t, s2.Open())
	defer s2.Close()

	rec, err := s2.GetIngestion("/n.note")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(42), rec.MtimeNanos)
}
