package config

// DefaultDefinitions are the glob patterns used to find report definitions.
var DefaultDefinitions = []string{
	"reports/**/*.yml",
	"reports/**/*.yaml",
}

// DefaultExcludes are glob patterns excluded from definition discovery.
var DefaultExcludes = []string{
	"**/_*.yml",
	"**/_*.yaml",
}

// DefaultPasswordEnv is the environment variable holding the SMTP password.
const DefaultPasswordEnv = "AUTOREPORT_SMTP_PASSWORD"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "out",
		DataDir:     ".autoreport",
		Definitions: DefaultDefinitions,
		Exclude:     DefaultExcludes,
		Log: LogConfig{
			Level:  "info",
			Format: LogConsole,
		},
		Mail: MailConfig{
			Transport:      TransportNone,
			TimeoutSeconds: 10,
			SMTP: SMTPConfig{
				Port:        587,
				PasswordEnv: DefaultPasswordEnv,
			},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Render: RenderConfig{
			PlotWidth:  480,
			PlotHeight: 280,
		},
	}
}
