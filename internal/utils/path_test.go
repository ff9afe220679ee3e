package utils

import (
	"testing"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./test",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/test",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && result == "" {
				t.Errorf("ResolvePath(%q) returned empty string", tt.input)
			}
		})
	}
}

func TestWithinDir(t *testing.T) {
	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{"direct child", "/sn/Document/Paperless/a.pdf", "/sn/Document/Paperless", true},
		{"nested child", "/sn/Document/Paperless/x/a.pdf", "/sn/Document/Paperless", true},
		{"dir itself", "/sn/Document/Paperless", "/sn/Document/Paperless", true},
		{"sibling", "/sn/Document/Other/a.pdf", "/sn/Document/Paperless", false},
		{"parent", "/sn/Document", "/sn/Document/Paperless", false},
		{"traversal", "/sn/Document/Paperless/../../etc/passwd", "/sn/Document/Paperless", false},
		{"prefix but not child", "/sn/Document/PaperlessEvil/a.pdf", "/sn/Document/Paperless", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinDir(tt.path, tt.dir); got != tt.want {
				t.Errorf("WithinDir(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
			}
		})
	}
}
