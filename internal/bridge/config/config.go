package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/paperbridge/paperbridge/internal/utils"
	"github.com/spf13/viper"
)

// MinPollInterval is the floor for the outbound poll interval so the bridge
// never hammers the Paperless API.
const MinPollInterval = 10 * time.Second

var (
	home, _           = utils.ResolvePath("~")
	DefaultConfigPath = filepath.Join(home, ".paperbridge", "config.yaml")
	DefaultStateDB    = filepath.Join(home, ".paperbridge", "bridge.db")
	DefaultLogFile    = filepath.Join(home, ".paperbridge", "paperbridge.log")
)

// Config is the full bridge configuration, built once at startup and passed
// explicitly to both engines.
type Config struct {
	// Paperless connection
	PaperlessURL   string `mapstructure:"paperless_url"`
	PaperlessToken string `mapstructure:"paperless_token"`

	// Device paths
	NoteDir        string `mapstructure:"note_dir"`
	DocumentDir    string `mapstructure:"document_dir"`
	PrerenderedDir string `mapstructure:"prerendered_dir"`

	// Fallback render command; "{note}" is replaced with the note path and
	// the PDF is read from stdout.
	RenderCommand []string `mapstructure:"render_command"`

	// Metadata applied to ingested notes
	CorrespondentOverride string `mapstructure:"correspondent_override"`
	DocumentType          string `mapstructure:"document_type"`

	// Tag names
	InboundTag        string `mapstructure:"inbound_tag"`
	CompletionTag     string `mapstructure:"completion_tag"`
	SupersededTag     string `mapstructure:"superseded_tag"`
	OutboundTag       string `mapstructure:"outbound_tag"`
	OutboundSubfolder string `mapstructure:"outbound_subfolder"`

	// LLM gateway (OpenAI-compatible) for OCR and metadata
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	VisionModel   string `mapstructure:"vision_model"`
	MetadataModel string `mapstructure:"metadata_model"`
	SummaryModel  string `mapstructure:"summary_model"`

	// Behavior
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StateDB      string        `mapstructure:"state_db"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFile      string        `mapstructure:"log_file"`
}

// SetDefaults installs default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paperless_url", "http://paperless-ngx:8000")
	v.SetDefault("inbound_tag", "paperless-gpt-ocr-auto")
	v.SetDefault("completion_tag", "supernote-ingested")
	v.SetDefault("superseded_tag", "superseded")
	v.SetDefault("outbound_tag", "send-to-supernote")
	v.SetDefault("outbound_subfolder", "Paperless")
	v.SetDefault("vision_model", "gpt-4o")
	v.SetDefault("metadata_model", "gpt-4o-mini")
	v.SetDefault("poll_interval", time.Minute)
	v.SetDefault("state_db", DefaultStateDB)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", DefaultLogFile)
}

// Load unmarshals and validates the configuration from a viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and normalizes paths.
func (c *Config) Validate() error {
	if c.PaperlessURL == "" {
		return errors.New("config: paperless_url is required")
	}
	if c.PaperlessToken == "" {
		return errors.New("config: paperless_token is required")
	}
	if c.NoteDir == "" {
		return errors.New("config: note_dir is required")
	}
	if c.DocumentDir == "" {
		return errors.New("config: document_dir is required")
	}
	if c.OpenAIAPIKey == "" {
		return errors.New("config: openai_api_key is required")
	}
	if c.OutboundSubfolder == "" {
		return errors.New("config: outbound_subfolder cannot be empty")
	}

	for _, p := range []*string{&c.NoteDir, &c.DocumentDir, &c.StateDB} {
		resolved, err := utils.ResolvePath(*p)
		if err != nil {
			return fmt.Errorf("config: resolve path %q: %w", *p, err)
		}
		*p = resolved
	}
	if c.PrerenderedDir != "" {
		resolved, err := utils.ResolvePath(c.PrerenderedDir)
		if err != nil {
			return fmt.Errorf("config: resolve path %q: %w", c.PrerenderedDir, err)
		}
		c.PrerenderedDir = resolved
	}

	if c.PollInterval < MinPollInterval {
		c.PollInterval = MinPollInterval
	}

	return nil
}

// ExportDir is the managed subfolder the outbound engine writes to and deletes
// from. Nothing outside it is ever touched.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DocumentDir, c.OutboundSubfolder)
}

// LockPath is the daemon instance lock next to the state database.
func (c *Config) LockPath() string {
	return c.StateDB + ".lock"
}
