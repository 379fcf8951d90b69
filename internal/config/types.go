package config

// TransportType selects how rendered reports are delivered.
type TransportType string

const (
	TransportNone    TransportType = "none"
	TransportSMTP    TransportType = "smtp"
	TransportWebhook TransportType = "webhook"
)

// LogFormat selects the log output encoding.
type LogFormat string

const (
	LogConsole LogFormat = "console"
	LogJSON    LogFormat = "json"
)

// Config is the top-level autoreport configuration, corresponding to .autoreport.yml.
type Config struct {
	OutputDir   string       `yaml:"output_dir" koanf:"output_dir"`
	DataDir     string       `yaml:"data_dir" koanf:"data_dir"`
	Definitions []string     `yaml:"definitions" koanf:"definitions"`
	Exclude     []string     `yaml:"exclude" koanf:"exclude"`
	Log         LogConfig    `yaml:"log" koanf:"log"`
	Mail        MailConfig   `yaml:"mail" koanf:"mail"`
	Server      ServerConfig `yaml:"server" koanf:"server"`
	Render      RenderConfig `yaml:"render" koanf:"render"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string    `yaml:"level" koanf:"level"`
	Format LogFormat `yaml:"format" koanf:"format"`
}

// MailConfig controls report delivery.
type MailConfig struct {
	Transport      TransportType `yaml:"transport" koanf:"transport"`
	Subject        string        `yaml:"subject" koanf:"subject"`
	From           string        `yaml:"from" koanf:"from"`
	SMTP           SMTPConfig    `yaml:"smtp" koanf:"smtp"`
	WebhookURL     string        `yaml:"webhook_url" koanf:"webhook_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// SMTPConfig holds SMTP server settings. The password is read from the
// environment variable named by PasswordEnv, never from the file.
type SMTPConfig struct {
	Host        string `yaml:"host" koanf:"host"`
	Port        int    `yaml:"port" koanf:"port"`
	Username    string `yaml:"username" koanf:"username"`
	PasswordEnv string `yaml:"password_env" koanf:"password_env"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}

// RenderConfig holds rendering options.
type RenderConfig struct {
	UnsafeHTML bool `yaml:"unsafe_html" koanf:"unsafe_html"`
	PlotWidth  int  `yaml:"plot_width" koanf:"plot_width"`
	PlotHeight int  `yaml:"plot_height" koanf:"plot_height"`
}
