package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set("paperless_token", "tok")
	v.Set("note_dir", t.TempDir())
	v.Set("document_dir", t.TempDir())
	v.Set("openai_api_key", "key")
	return v
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(validViper(t))
	require.NoError(t, err)

	assert.Equal(t, "paperless-gpt-ocr-auto", cfg.InboundTag)
	assert.Equal(t, "supernote-ingested", cfg.CompletionTag)
	assert.Equal(t, "superseded", cfg.SupersededTag)
	assert.Equal(t, "send-to-supernote", cfg.OutboundTag)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, filepath.Join(cfg.DocumentDir, "Paperless"), cfg.ExportDir())
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"missing token", "paperless_token"},
		{"missing note dir", "note_dir"},
		{"missing document dir", "document_dir"},
		{"missing llm key", "openai_api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper(t)
			v.Set(tt.unset, "")
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestValidate_PollIntervalFloor(t *testing.T) {
	v := validViper(t)
	v.Set("poll_interval", "2s")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, MinPollInterval, cfg.PollInterval)
}

func TestValidate_ResolvesRelativePaths(t *testing.T) {
	v := validViper(t)
	v.Set("state_db", "./state/bridge.db")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.StateDB))
	assert.Equal(t, cfg.StateDB+".lock", cfg.LockPath())
}
