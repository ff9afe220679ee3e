package outbound

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbridge/paperbridge/internal/bridge/config"
	"github.com/paperbridge/paperbridge/internal/bridge/state"
	"github.com/paperbridge/paperbridge/internal/paperless"
)

type fakeRemote struct {
	tagID     int64
	docs      []paperless.Document
	downloads map[int64][]byte
	names     map[int64]string
	listErr   error
}

func (f *fakeRemote) ResolveTag(_ context.Context, name string) (int64, error) {
	if f.tagID == 0 {
		return 0, fmt.Errorf("tag %q: %w", name, paperless.ErrTagNotFound)
	}
	return f.tagID, nil
}

func (f *fakeRemote) ListDocumentsByTag(_ context.Context, tagID int64) ([]paperless.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func (f *fakeRemote) Download(_ context.Context, docID int64) ([]byte, string, error) {
	data, ok := f.downloads[docID]
	if !ok {
		return nil, "", fmt.Errorf("document %d has no download", docID)
	}
	name := f.names[docID]
	if name == "" {
		name = fmt.Sprintf("document_%d.pdf", docID)
	}
	return data, name, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeRemote) {
	t.Helper()

	cfg := &config.Config{
		DocumentDir:       t.TempDir(),
		OutboundSubfolder: "Paperless",
		OutboundTag:       "send-to-supernote",
	}
	require.NoError(t, os.MkdirAll(cfg.ExportDir(), 0o755))

	store := state.NewStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() { store.Close() })

	remote := &fakeRemote{
		tagID:     42,
		downloads: map[int64][]byte{},
		names:     map[int64]string{},
	}
	e := NewEngine(cfg, store, remote)
	e.outboundTagID = remote.tagID
	return e, remote
}

func addDoc(f *fakeRemote, id int64, title string, data []byte) {
	f.docs = append(f.docs, paperless.Document{ID: id, Title: title, Tags: []int64{f.tagID}})
	f.downloads[id] = data
}

func TestSyncOnceExportsAndRemoves(t *testing.T) {
	e, remote := newTestEngine(t)

	// Remote has 1,2,3 tagged; device already mirrors 2,3,4.
	addDoc(remote, 1, "New Doc", []byte("one"))
	addDoc(remote, 2, "Kept A", []byte("two"))
	addDoc(remote, 3, "Kept B", []byte("three"))

	stalePath := filepath.Join(e.cfg.ExportDir(), "Stale.pdf")
	require.NoError(t, os.WriteFile(stalePath, []byte("four"), 0o644))
	for id, path := range map[int64]string{
		2: filepath.Join(e.cfg.ExportDir(), "Kept A.pdf"),
		3: filepath.Join(e.cfg.ExportDir(), "Kept B.pdf"),
		4: stalePath,
	} {
		require.NoError(t, e.store.UpsertExport(&state.ExportRecord{DocumentID: id, LocalPath: path}))
	}

	require.NoError(t, e.SyncOnce(context.Background()))

	assert.FileExists(t, filepath.Join(e.cfg.ExportDir(), "New Doc.pdf"))
	assert.NoFileExists(t, stalePath)

	ids, err := e.store.GetExportedIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)

	// Untagged-and-unrecorded documents were never downloaded again.
	data, err := os.ReadFile(filepath.Join(e.cfg.ExportDir(), "New Doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}

func TestExportCollisionAppendsDocID(t *testing.T) {
	e, remote := newTestEngine(t)
	addDoc(remote, 10, "Minutes", []byte("first"))
	addDoc(remote, 11, "Minutes", []byte("second"))

	require.NoError(t, e.SyncOnce(context.Background()))

	entries, err := os.ReadDir(e.cfg.ExportDir())
	require.NoError(t, err)
	var names []string
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	assert.Len(t, names, 2)
	assert.Contains(t, names, "Minutes.pdf")
	// One of the two got the id suffix; which one depends on set order.
	suffixed := 0
	for _, n := range names {
		if n == "Minutes_10.pdf" || n == "Minutes_11.pdf" {
			suffixed++
		}
	}
	assert.Equal(t, 1, suffixed)
}

func TestExportReusesRecordedPath(t *testing.T) {
	e, remote := newTestEngine(t)
	addDoc(remote, 7, "Weekly", []byte("v1"))
	require.NoError(t, e.SyncOnce(context.Background()))

	path, ok, err := e.store.GetExportPath(7)
	require.NoError(t, err)
	require.True(t, ok)

	// Re-export of the same document overwrites in place, no _7 suffix.
	doc := remote.docs[0]
	remote.downloads[7] = []byte("v2")
	require.NoError(t, e.export(context.Background(), &doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
	assert.NoFileExists(t, filepath.Join(e.cfg.ExportDir(), "Weekly_7.pdf"))
}

func TestRemoveRefusesPathOutsideExportDir(t *testing.T) {
	e, _ := newTestEngine(t)

	victim := filepath.Join(t.TempDir(), "precious.pdf")
	require.NoError(t, os.WriteFile(victim, []byte("keep me"), 0o644))
	require.NoError(t, e.store.UpsertExport(&state.ExportRecord{DocumentID: 99, LocalPath: victim}))

	require.NoError(t, e.remove(99))

	assert.FileExists(t, victim, "files outside the export dir must never be deleted")
	ids, err := e.store.GetExportedIDs()
	require.NoError(t, err)
	assert.Empty(t, ids, "the record is still dropped")
}

func TestRemoveToleratesMissingFile(t *testing.T) {
	e, _ := newTestEngine(t)

	gone := filepath.Join(e.cfg.ExportDir(), "already-deleted.pdf")
	require.NoError(t, e.store.UpsertExport(&state.ExportRecord{DocumentID: 5, LocalPath: gone}))

	require.NoError(t, e.remove(5))

	ids, err := e.store.GetExportedIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSyncOnceListFailureAbortsCycle(t *testing.T) {
	e, remote := newTestEngine(t)
	remote.listErr = fmt.Errorf("boom")
	require.Error(t, e.SyncOnce(context.Background()))
}

func TestExportPathUsesRemoteExtension(t *testing.T) {
	e, remote := newTestEngine(t)
	remote.names[20] = "scan.png"
	addDoc(remote, 20, "Whiteboard", []byte("img"))

	require.NoError(t, e.SyncOnce(context.Background()))
	assert.FileExists(t, filepath.Join(e.cfg.ExportDir(), "Whiteboard.png"))
}
