package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/agent"
	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/ai/deepseek"
	"github.com/spigell/hr-copilot/internal/ai/gemini"
	"github.com/spigell/hr-copilot/internal/analyzer"
	"github.com/spigell/hr-copilot/internal/extract"
	"github.com/spigell/hr-copilot/internal/intent"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/mail"
	"github.com/spigell/hr-copilot/internal/secrets"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze a resume against a job description and start the interactive session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("resume", "r", "", "path to the candidate resume (pdf, docx or txt)")
	runCmd.Flags().StringP("job", "b", "", "path to the job description (pdf, docx or txt)")

	_ = runCmd.MarkFlagRequired("resume")
	_ = runCmd.MarkFlagRequired("job")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	sanitizer := logger.NewSanitizer()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hr-copilot", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	completer, err := buildCompleter(ctx, config.AI, sanitizer, logger)
	if err != nil {
		logger.Fatal("building ai provider", zap.Error(err))
	}

	resumeText, err := extract.FromFile(cmd.Flag("resume").Value.String())
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	jobText, err := extract.FromFile(cmd.Flag("job").Value.String())
	if err != nil {
		logger.Fatal("reading job description", zap.Error(err))
	}

	logger.Info("analyzing resume against job description")

	analysis, err := analyzer.New(completer, logger).Analyze(ctx, resumeText, jobText)
	if err != nil {
		logger.Fatal("analyzing resume", zap.Error(err))
	}

	logger.Info("analysis complete",
		zap.Int("match_percentage", analysis.MatchPercentage),
		zap.String("position_level", string(analysis.PositionLevel)),
		zap.Float64("acceptance_probability", analysis.AcceptanceProbability),
		zap.String("candidate_email", analysis.CandidateEmail),
	)

	chat := config.Chat
	if chat == nil {
		chat = &ChatConfig{}
	}

	copilot := agent.New(agent.Deps{
		Classifier: intent.NewClassifier(completer, chat.SendTriggers, logger),
		Completer:  completer,
		Mailer:     buildMailer(config.SMTP, sanitizer, logger),
		Fetcher:    buildFetcher(config.IMAP, sanitizer, logger),
		Filters:    []mail.Filter{mail.NewCategoryFilter(completer, chat.DropSpam, logger)},
		Logger:     logger,
		Sanitizer:  sanitizer,
	}, agent.Options{
		HistoryWindow: chat.HistoryWindow,
		FetchLimit:    chat.FetchLimit,
		HRName:        config.HRName,
	})

	if err := copilot.InitializeSession(jobText, analysis); err != nil {
		logger.Fatal("initializing session", zap.Error(err))
	}

	fmt.Println("Ask about the candidate, request an email draft, or type 'exit' to quit.")

	input := promptui.Prompt{Label: "you"}
	for {
		utterance, err := input.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				logger.Info("exiting", zap.String("reason", "input closed"))
				return
			}
			logger.Fatal("reading input", zap.Error(err))
		}

		switch strings.ToLower(strings.TrimSpace(utterance)) {
		case "exit", "quit":
			logger.Info("exiting", zap.String("reason", "requested by user"))
			return
		}

		reply, err := copilot.HandleTurn(ctx, utterance)
		if err != nil {
			logger.Fatal("handling turn", zap.Error(err))
		}

		fmt.Printf("\n%s\n\n", reply)
	}
}

// buildCompleter assembles the model backend. With an explicit provider only
// that backend is used; otherwise every configured backend joins the fallback
// chain, gemini first.
func buildCompleter(ctx context.Context, cfg *AIConfig, sanitizer *logger.Sanitizer, log *zap.Logger) (ai.Completer, error) {
	if cfg == nil {
		return nil, errors.New("ai configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" && provider != "deepseek" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	var providers []ai.Completer

	if provider == "" || provider == "gemini" {
		if cfg.Gemini == nil && provider == "gemini" {
			return nil, errors.New("gemini configuration is required")
		}
		if cfg.Gemini != nil {
			generator, err := newGemini(ctx, cfg.Gemini, sanitizer, log)
			if err != nil {
				return nil, err
			}
			providers = append(providers, generator)
		}
	}

	if provider == "" || provider == "deepseek" {
		if cfg.Deepseek == nil && provider == "deepseek" {
			return nil, errors.New("deepseek configuration is required")
		}
		if cfg.Deepseek != nil {
			client, err := newDeepseek(cfg.Deepseek, sanitizer, log)
			if err != nil {
				return nil, err
			}
			providers = append(providers, client)
		}
	}

	switch len(providers) {
	case 0:
		return nil, errors.New("no ai backend is configured")
	case 1:
		return providers[0], nil
	default:
		return ai.NewChain(log, providers...), nil
	}
}

func newGemini(ctx context.Context, cfg *GeminiConfig, sanitizer *logger.Sanitizer, log *zap.Logger) (ai.Completer, error) {
	keyFile := cfg.APIKeyFile
	if keyFile == "" {
		keyFile = viper.GetString("ai.gemini.api-key-file")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	sanitizer.Add(apiKey)

	return gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, log)
}

func newDeepseek(cfg *DeepseekConfig, sanitizer *logger.Sanitizer, log *zap.Logger) (ai.Completer, error) {
	keyFile := cfg.APIKeyFile
	if keyFile == "" {
		keyFile = viper.GetString("ai.deepseek.api-key-file")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "deepseek api key",
		File: keyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.deepseek.api-key-file or DEEPSEEK_API_KEY_FILE)", err)
	}

	sanitizer.Add(apiKey)

	return deepseek.New(apiKey, cfg.Model, cfg.BaseURL, log), nil
}

// buildMailer returns nil when outgoing email is not configured; the
// conversational core degrades to a natural-language explanation.
func buildMailer(cfg *SMTPConfig, sanitizer *logger.Sanitizer, log *zap.Logger) agent.Mailer {
	if cfg == nil {
		return nil
	}

	smtpCfg := cfg.SMTPConfig

	password, err := loadMailPassword("smtp password", cfg.PasswordFile, "smtp.password-file")
	if err != nil {
		log.Warn("outgoing email disabled", zap.Error(err))
		return nil
	}

	sanitizer.Add(password)
	smtpCfg.Password = password

	return mail.NewSender(smtpCfg, log)
}

func buildFetcher(cfg *IMAPConfig, sanitizer *logger.Sanitizer, log *zap.Logger) agent.Fetcher {
	if cfg == nil {
		return nil
	}

	imapCfg := cfg.IMAPConfig

	password, err := loadMailPassword("imap password", cfg.PasswordFile, "imap.password-file")
	if err != nil {
		log.Warn("incoming email disabled", zap.Error(err))
		return nil
	}

	sanitizer.Add(password)
	imapCfg.Password = password

	return mail.NewFetcher(imapCfg, log)
}

func loadMailPassword(name, file, viperKey string) (string, error) {
	if file == "" {
		file = viper.GetString(viperKey)
	}

	return secrets.Load(secrets.Source{
		Name: name,
		File: file,
	})
}
