package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/rhymist/internal/config"
	"github.com/MarcoPoloResearchLab/rhymist/internal/database"
	"github.com/MarcoPoloResearchLab/rhymist/internal/generation"
	"github.com/MarcoPoloResearchLab/rhymist/internal/images"
	"github.com/MarcoPoloResearchLab/rhymist/internal/logging"
	"github.com/MarcoPoloResearchLab/rhymist/internal/openai"
	"github.com/MarcoPoloResearchLab/rhymist/internal/payments"
	"github.com/MarcoPoloResearchLab/rhymist/internal/poems"
	"github.com/MarcoPoloResearchLab/rhymist/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "rhymist-api",
		Short: "Rhymist mnemonic image backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("images-dir", defaults.GetString("images.dir"), "Directory for stored images")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("image-limit", defaults.GetInt("quota.image_limit"), "Per-poem image ceiling")
	cmd.PersistentFlags().Int("admin-image-limit", defaults.GetInt("quota.admin_image_limit"), "Per-poem image ceiling for admin callers")
	cmd.PersistentFlags().String("admin-passphrase", "", "Admin passphrase (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "images.dir", "images-dir")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "quota.image_limit", "image-limit")
	bindFlag(cmd, "quota.admin_image_limit", "admin-image-limit")
	bindFlag(cmd, "admin.passphrase", "admin-passphrase")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// Secrets commonly live in a local .env during development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	poemService, err := poems.NewService(poems.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	verifier := payments.NewVerifier(payments.VerifierConfig{
		AdminPassphrase: appConfig.AdminPassphrase,
		Intents:         payments.NewStripeIntentClient(appConfig.StripeSecretKey),
		Amount:          appConfig.PaymentAmount,
		Currency:        appConfig.PaymentCurrency,
		Logger:          logger,
	})

	openaiClient := openai.NewClient(openai.ClientConfig{
		APIKey:     appConfig.OpenAIAPIKey,
		BaseURL:    appConfig.OpenAIBaseURL,
		ChatModel:  appConfig.ChatModel,
		ImageModel: appConfig.ImageModel,
		ImageSize:  appConfig.ImageSize,
	})

	generationService, err := generation.NewService(generation.ServiceConfig{
		Store:     poemService,
		Verifier:  verifier,
		Composer:  openaiClient,
		Generator: openaiClient,
		Fetcher:   images.NewFetcher(appConfig.ImagesDir),
		Limits: generation.Limits{
			Standard: int64(appConfig.ImageLimit),
			Admin:    int64(appConfig.AdminImageLimit),
		},
		Clock:  time.Now,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Poems:      poemService,
		Generation: generationService,
		Payments:   verifier,
		ImagesDir:  appConfig.ImagesDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
