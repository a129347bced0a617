package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hr-copilot/internal/mail"
)

const (
	app = "hr-copilot"
)

type Config struct {
	HRName string      `mapstructure:"hr-name"`
	AI     *AIConfig   `mapstructure:"ai"`
	SMTP   *SMTPConfig `mapstructure:"smtp"`
	IMAP   *IMAPConfig `mapstructure:"imap"`
	Chat   *ChatConfig `mapstructure:"chat"`
}

type AIConfig struct {
	// Provider selects a single backend ("gemini" or "deepseek"). When empty
	// every configured backend joins the fallback chain, gemini first.
	Provider string          `mapstructure:"provider"`
	Gemini   *GeminiConfig   `mapstructure:"gemini"`
	Deepseek *DeepseekConfig `mapstructure:"deepseek"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type DeepseekConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type SMTPConfig struct {
	mail.SMTPConfig `mapstructure:",squash"`
	PasswordFile    string `mapstructure:"password-file"`
}

type IMAPConfig struct {
	mail.IMAPConfig `mapstructure:",squash"`
	PasswordFile    string `mapstructure:"password-file"`
}

type ChatConfig struct {
	HistoryWindow int      `mapstructure:"history-window"`
	FetchLimit    int      `mapstructure:"fetch-limit"`
	SendTriggers  []string `mapstructure:"send-triggers"`
	DropSpam      bool     `mapstructure:"drop-spam"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hr-copilot is a conversational assistant for evaluating candidates and handling recruiting email",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"ai.gemini.api-key-file":   "GEMINI_API_KEY_FILE",
		"ai.deepseek.api-key-file": "DEEPSEEK_API_KEY_FILE",
		"smtp.password-file":       "SMTP_PASSWORD_FILE",
		"imap.password-file":       "IMAP_PASSWORD_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-copilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	// A .env file is optional; environment wins over it either way.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
