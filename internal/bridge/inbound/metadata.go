package inbound

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// Device-named notes use a capture-time stamp as the filename stem.
var noteStampRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})$`)

// createdDateFor derives the document created date from the note filename
// stem when it carries a timestamp, else from the file modification time.
func createdDateFor(stem string, modTime time.Time) string {
	if m := noteStampRe.FindStringSubmatch(stem); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	return modTime.Format("2006-01-02")
}

const defaultCorrespondent = "Supernote"

// correspondentFor maps a note path to its correspondent. The device export
// layout is <account>/Supernote/Note/<file>.note, so the account directory
// sits three levels above the note. Shallower paths fall back to the default.
func correspondentFor(notePath, override string) string {
	if override != "" {
		return override
	}
	account := filepath.Base(filepath.Dir(filepath.Dir(filepath.Dir(notePath))))
	if account == "." || account == string(filepath.Separator) || account == "" {
		return defaultCorrespondent
	}
	return account
}
