package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to autoreport! Let's configure your project.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Output directory.
	outputPrompt := promptui.Prompt{
		Label:   "Output directory for rendered reports",
		Default: cfg.OutputDir,
	}
	outputDir, err := outputPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	cfg.OutputDir = outputDir

	// 2. Definition patterns.
	defsPrompt := promptui.Prompt{
		Label:   "Report definition patterns (comma-separated globs)",
		Default: strings.Join(DefaultDefinitions, ","),
	}
	defsStr, err := defsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("definition patterns: %w", err)
	}
	cfg.Definitions = splitAndTrim(defsStr)

	// 3. Delivery transport.
	transportPrompt := promptui.Select{
		Label: "How should reports be delivered?",
		Items: []string{
			"none    — render only",
			"smtp    — send email through an SMTP server",
			"webhook — POST the rendered report as JSON",
		},
	}
	idx, _, err := transportPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("transport selection: %w", err)
	}
	cfg.Mail.Transport = []TransportType{TransportNone, TransportSMTP, TransportWebhook}[idx]

	switch cfg.Mail.Transport {
	case TransportSMTP:
		if err := promptSMTP(cfg); err != nil {
			return nil, err
		}
	case TransportWebhook:
		urlPrompt := promptui.Prompt{
			Label:    "Webhook URL",
			Validate: requireNonEmpty,
		}
		cfg.Mail.WebhookURL, err = urlPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("webhook url: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func promptSMTP(cfg *Config) error {
	hostPrompt := promptui.Prompt{Label: "SMTP host", Validate: requireNonEmpty}
	host, err := hostPrompt.Run()
	if err != nil {
		return fmt.Errorf("smtp host: %w", err)
	}
	cfg.Mail.SMTP.Host = host

	portPrompt := promptui.Prompt{
		Label:   "SMTP port",
		Default: strconv.Itoa(cfg.Mail.SMTP.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return fmt.Errorf("smtp port: %w", err)
	}
	cfg.Mail.SMTP.Port, _ = strconv.Atoi(portStr)

	userPrompt := promptui.Prompt{Label: "SMTP username (blank for none)"}
	if cfg.Mail.SMTP.Username, err = userPrompt.Run(); err != nil {
		return fmt.Errorf("smtp username: %w", err)
	}

	fromPrompt := promptui.Prompt{Label: "Sender address", Validate: requireNonEmpty}
	if cfg.Mail.From, err = fromPrompt.Run(); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}

	if cfg.Mail.SMTP.Username != "" && os.Getenv(cfg.Mail.SMTP.PasswordEnv) == "" {
		fmt.Printf("\nNote: Set %s in your environment before sending reports.\n", cfg.Mail.SMTP.PasswordEnv)
	}
	return nil
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
