package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/config"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/database"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "choir-api",
		Short: "Choir repertoire and rehearsal backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file loaded before reading the environment")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", "", "Postgres connection string")
	cmd.PersistentFlags().String("auth-mode", defaults.GetString("auth.mode"), "Token verification mode (jwks, shared_secret)")
	cmd.PersistentFlags().String("jwks-url", defaults.GetString("auth.jwks_url"), "JWKS URL of the identity provider")
	cmd.PersistentFlags().StringSlice("issuers", nil, "Allowed token issuers")
	cmd.PersistentFlags().String("signing-secret", "", "Shared token signing secret (overrides env)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "auth.mode", "auth-mode")
	bindFlag(cmd, "auth.jwks_url", "jwks-url")
	bindFlag(cmd, "auth.issuers", "issuers")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
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

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(database.Options{
		Driver:       appConfig.DatabaseDriver,
		Path:         appConfig.DatabasePath,
		DSN:          appConfig.DatabaseDSN,
		MaxOpenConns: appConfig.DatabaseMaxOpenConns,
	}, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	verifier, err := newVerifier(appConfig, logger)
	if err != nil {
		return err
	}

	store := repertoire.NewGormStore(db)
	songService, err := repertoire.NewSongService(repertoire.ServiceConfig{Store: store, Logger: logger})
	if err != nil {
		return err
	}
	rehearsalService, err := repertoire.NewRehearsalService(repertoire.ServiceConfig{Store: store, Logger: logger})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier:       verifier,
		Songs:          songService,
		Rehearsals:     rehearsalService,
		HealthCheck:    sqlDB.PingContext,
		AdminRole:      appConfig.AuthAdminRole,
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		AppInfo:        server.AppInfo{Name: appConfig.AppName, Version: appConfig.AppVersion},
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("auth_mode", appConfig.AuthMode),
			zap.String("database_driver", appConfig.DatabaseDriver),
		)
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
		logger.Info("server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newVerifier(appConfig config.AppConfig, logger *zap.Logger) (auth.Verifier, error) {
	switch appConfig.AuthMode {
	case config.AuthModeSharedSecret:
		return auth.NewSharedSecretVerifier(auth.SharedSecretVerifierConfig{
			SigningSecret: []byte(appConfig.AuthSigningSecret),
			Issuer:        appConfig.AuthTokenIssuer,
			Audience:      appConfig.AuthAudience,
			RolesClaim:    appConfig.AuthRolesClaim,
		})
	default:
		return auth.NewJWKSVerifier(auth.JWKSVerifierConfig{
			JWKSURL:        appConfig.AuthJWKSURL,
			AllowedIssuers: appConfig.AuthIssuers,
			Audience:       appConfig.AuthAudience,
			RolesClaim:     appConfig.AuthRolesClaim,
			Logger:         logger,
		})
	}
}
