package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "AUTOREPORT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. Nested keys are separated by a double
// underscore: AUTOREPORT_MAIL__SMTP__HOST -> mail.smtp.host.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validTransports is the set of recognized transport values.
var validTransports = map[TransportType]bool{
	TransportNone:    true,
	TransportSMTP:    true,
	TransportWebhook: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "" && c.Log.Format != LogConsole && c.Log.Format != LogJSON {
		return fmt.Errorf("invalid log.format %q: must be console or json", c.Log.Format)
	}

	if !validTransports[c.Mail.Transport] {
		return fmt.Errorf("invalid mail.transport %q: must be one of none, smtp, webhook", c.Mail.Transport)
	}
	switch c.Mail.Transport {
	case TransportSMTP:
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("mail.smtp.host is required for the smtp transport")
		}
		if c.Mail.SMTP.Port <= 0 || c.Mail.SMTP.Port > 65535 {
			return fmt.Errorf("mail.smtp.port %d is out of range", c.Mail.SMTP.Port)
		}
	case TransportWebhook:
		if c.Mail.WebhookURL == "" {
			return fmt.Errorf("mail.webhook_url is required for the webhook transport")
		}
	}
	if c.Mail.TimeoutSeconds < 0 {
		return fmt.Errorf("mail.timeout_seconds must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Render.PlotWidth < 0 || c.Render.PlotHeight < 0 {
		return fmt.Errorf("render plot size must be non-negative")
	}

	return nil
}

// SMTPPassword returns the SMTP password from the configured environment variable.
func (c *Config) SMTPPassword() string {
	name := c.Mail.SMTP.PasswordEnv
	if name == "" {
		name = DefaultPasswordEnv
	}
	return os.Getenv(name)
}

// DatabasePath returns the path of the delivery database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "autoreport.db")
}
