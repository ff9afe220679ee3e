package outbound

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/paperbridge/paperbridge/internal/utils"
)

// remove deletes the exported file for a document whose outbound tag is gone,
// then drops the export record. The on-disk delete is refused unless the
// recorded path resolves inside the export folder; a record pointing anywhere
// else is treated as corrupt and only the record is dropped.
func (e *Engine) remove(docID int64) error {
	path, ok, err := e.store.GetExportPath(docID)
	if err != nil {
		return fmt.Errorf("load export path: %w", err)
	}

	if ok {
		if !utils.WithinDir(path, e.cfg.ExportDir()) {
			slog.Warn("skip file delete", "doc_id", docID, "path", path,
				"reason", "recorded path outside export dir")
		} else {
			switch err := os.Remove(path); {
			case err == nil:
				slog.Info("removed export", "doc_id", docID, "path", path)
			case os.IsNotExist(err):
				slog.Debug("export already gone", "doc_id", docID, "path", path)
			default:
				return fmt.Errorf("delete %s: %w", path, err)
			}
		}
	}

	if err := e.store.DeleteExport(docID); err != nil {
		return fmt.Errorf("drop export record: %w", err)
	}
	return nil
}
