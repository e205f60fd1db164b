package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/audit"
	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/cipher"
	"github.com/doodlesbykumbi/keyvault/pkg/config"
	"github.com/doodlesbykumbi/keyvault/pkg/credstore"
	"github.com/doodlesbykumbi/keyvault/pkg/db"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/metrics"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/keyvault/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if p, err := strconv.Atoi(defaultPort()); err == nil {
		return p
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the keyvault application server",
	Long: `Run the keyvault application server.

The server requires DATABASE_URL and KEYVAULT_SESSION_SECRET. The database
credential store additionally requires KEYVAULT_DATA_KEY.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		watch, _ := cmd.Flags().GetBool("watch-config")

		return runServer(cmd.Context(), host, port, noMigrate, watch)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("watch-config", false, "re-validate keyvault.yml whenever it changes")
}

func runServer(ctx context.Context, host, port string, noMigrate, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Validate required settings first (fail fast)
	if config.DatabaseURL() == "" {
		return fmt.Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	issuer, err := session.NewIssuer(config.SessionSecret(), cfg.SessionTTL())
	if err != nil {
		return fmt.Errorf("%s: %w", config.EnvSessionSecret, err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	logging.SetDefault(logger)

	if !noMigrate {
		logger.Info(ctx, "running database migrations")
		if err := runMigrations(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	database, err := db.Connect(db.Config{URL: config.DatabaseURL(), LogLevel: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	creds, err := openCredentialStore(ctx, cfg, database, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsEnabled {
		metrics.Init()
	}

	users := gormstore.NewUsersStore(database)
	projects := gormstore.NewProjectsStore(database)
	memberships := gormstore.NewMembershipsStore(database)
	secretsStore := gormstore.NewSecretsStore(database)
	activityStore := gormstore.NewActivityStore(database)

	var auditLogger *audit.Logger
	recorderOpts := []activity.Option{activity.WithLogger(logger)}
	if cfg.AuditSyslogEnabled {
		auditLogger = audit.NewLogger(os.Stdout)
		recorderOpts = append(recorderOpts, activity.WithSink(auditLogger))
	}

	s := server.NewServer(server.Deps{
		Config:           cfg,
		Logger:           logger,
		UsersStore:       users,
		ProjectsStore:    projects,
		MembershipsStore: memberships,
		SecretsStore:     secretsStore,
		HealthStore:      gormstore.NewHealthStore(database),
		Authz:            authz.NewEngine(memberships),
		Secrets: secrets.NewManager(creds, secretsStore, projects,
			secrets.WithNamespace(cfg.SSMNamespace),
			secrets.WithLogger(logger),
		),
		Activity: activity.NewRecorder(activityStore, users, projects, secretsStore, recorderOpts...),
		Sessions: issuer,
		Audit:    auditLogger,
	}, host, port)
	endpoints.RegisterAll(s)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		go func() {
			if err := watchConfig(ctx, cfg.ConfigFilePath(), logger); err != nil {
				logger.Warn(ctx, "configuration watch stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", "address", fmt.Sprintf("http://%s:%s", host, port), "credential_store", cfg.CredentialStore)
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func openCredentialStore(ctx context.Context, cfg *config.KeyvaultConfig, database *gorm.DB, logger logging.Logger) (credstore.Store, error) {
	opts := credstore.Options{
		Backend: cfg.CredentialStore,
		SSM: credstore.SSMConfig{
			Region:      cfg.AWSRegion,
			Profile:     cfg.AWSProfile,
			EndpointURL: cfg.AWSEndpointURL,
			KMSKeyID:    cfg.AWSKMSKeyID,
		},
		DB: database,
	}

	if cfg.CredentialStore == credstore.BackendDatabase {
		dataKey := config.DataKey()
		if dataKey == "" {
			return nil, fmt.Errorf("%s environment variable is required by the database credential store", config.EnvDataKey)
		}
		sealer, err := cipher.NewFromBase64(dataKey)
		if err != nil {
			return nil, fmt.Errorf("bad %s: %w", config.EnvDataKey, err)
		}
		opts.Sealer = sealer
	}
	if cfg.CredentialStore == credstore.BackendMemory {
		logger.Warn(ctx, "using the in-memory credential store; secret values will not survive a restart")
	}

	return credstore.Open(ctx, opts)
}
