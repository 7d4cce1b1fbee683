package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// List backends.
const (
	ListBackendTool = "tool"
	ListBackendIMAP = "imap"
)

// Tools locates the external programs doing the actual IMAP work.
type Tools struct {
	Grab          string `yaml:"grab" validate:"required"`
	Upload        string `yaml:"upload" validate:"required"`
	UploadRetries int    `yaml:"upload_retries" validate:"min=1"`
}

// IMAP tunes the native list backend.
type IMAP struct {
	StartTLS bool `yaml:"starttls"`
	Insecure bool `yaml:"insecure"`
}

type Log struct {
	File     string `yaml:"file"`
	MaxBytes int64  `yaml:"max_bytes" validate:"min=0"`
	Backups  int    `yaml:"backups" validate:"min=0"`
}

type Config struct {
	Tools       Tools  `yaml:"tools"`
	ListBackend string `yaml:"list_backend" validate:"oneof=tool imap"`
	IMAP        IMAP   `yaml:"imap"`
	Log         Log    `yaml:"log"`
	ReportFile  string `yaml:"report_file"`
	MetricsFile string `yaml:"metrics_file"`
	// PromptSecrets asks on the terminal for CSV passwords that are "-".
	// Off by default, so such passwords reach the tools as written.
	PromptSecrets bool `yaml:"prompt_secrets"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Tools: Tools{
			Grab:          "imapbackup/imapgrab.py",
			Upload:        "imap_upload/imap_upload.py",
			UploadRetries: 3,
		},
		ListBackend: ListBackendTool,
		Log: Log{
			File:     "imap_migrator.log",
			MaxBytes: 500000,
			Backups:  3,
		},
	}
}

var validate = validator.New()

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
