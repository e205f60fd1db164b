package integration

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/cipher"
	"github.com/doodlesbykumbi/keyvault/pkg/config"
	"github.com/doodlesbykumbi/keyvault/pkg/credstore"
	"github.com/doodlesbykumbi/keyvault/pkg/db"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/keyvault/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

const serverPort = "18080"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string
	SessionSecret []byte
	Sealer        *cipher.AESGCM
	Creds         credstore.Store
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server
}

// NewTestContext creates a new test context with a PostgreSQL testcontainer.
// Modes:
//   - Binary mode: set KEYVAULT_BINARY to the path of the keyvaultctl binary
//   - Inline mode (default): the server runs in-process
//
// Both modes use the database credential store so written values can be
// checked in credential_parameters.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	binaryPath := os.Getenv("KEYVAULT_BINARY")
	if binaryPath != "" {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("KEYVAULT_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("keyvault_test"),
		tcpostgres.WithUsername("keyvault"),
		tcpostgres.WithPassword("keyvault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(migrationsDir, connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.Connect(db.Config{URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	dataKey := make([]byte, cipher.KeySize)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}
	sealer, err := cipher.New(dataKey)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	sessionSecret := []byte(strings.Repeat("integration-secret", 2))

	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	tc := &TestContext{
		DB:            database,
		Container:     pgContainer,
		ServerURL:     serverURL,
		DatabaseURL:   connStr,
		SessionSecret: sessionSecret,
		Sealer:        sealer,
		Creds:         credstore.NewDatabaseStore(database, sealer),
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
	}

	if binaryPath == "" {
		tc.InlineServer, tc.Cancel, err = startInlineServer(database, sealer, sessionSecret)
	} else {
		tc.ServerProcess, tc.Cancel, err = startBinary(binaryPath, connStr, dataKey, sessionSecret)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServer(serverURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return tc, nil
}

// startInlineServer starts the server in-process (no binary needed)
func startInlineServer(database *gorm.DB, sealer cipher.Sealer, sessionSecret []byte) (*server.Server, context.CancelFunc, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.CredentialStore = config.CredentialStoreDatabase
	cfg.SessionCookieSecure = false

	issuer, err := session.NewIssuer(sessionSecret, cfg.SessionTTL())
	if err != nil {
		return nil, nil, err
	}

	users := gormstore.NewUsersStore(database)
	projects := gormstore.NewProjectsStore(database)
	memberships := gormstore.NewMembershipsStore(database)
	secretsStore := gormstore.NewSecretsStore(database)
	logger := logging.New(os.Stderr, "warn", "text")

	s := server.NewServer(server.Deps{
		Config:           cfg,
		Logger:           logger,
		UsersStore:       users,
		ProjectsStore:    projects,
		MembershipsStore: memberships,
		SecretsStore:     secretsStore,
		HealthStore:      gormstore.NewHealthStore(database),
		Authz:            authz.NewEngine(memberships),
		Secrets: secrets.NewManager(
			credstore.NewDatabaseStore(database, sealer), secretsStore, projects,
			secrets.WithNamespace(cfg.SSMNamespace),
			secrets.WithLogger(logger),
		),
		Activity:  activity.NewRecorder(gormstore.NewActivityStore(database), users, projects, secretsStore, activity.WithLogger(logger)),
		Sessions:  issuer,
		AccessLog: io.Discard,
	}, "127.0.0.1", serverPort)
	endpoints.RegisterAll(s)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("inline server stopped: %v", err)
		}
	}()

	cancel := func() {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = s.Shutdown(ctx)
	}
	return s, cancel, nil
}

// startBinary starts the keyvaultctl server binary
func startBinary(binaryPath, dbURL string, dataKey, sessionSecret []byte) (*exec.Cmd, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", serverPort)
	cmd.Env = append(os.Environ(),
		config.EnvDatabaseURL+"="+dbURL,
		config.EnvDataKey+"="+base64.StdEncoding.EncodeToString(dataKey),
		config.EnvSessionSecret+"="+string(sessionSecret),
		"KEYVAULT_CREDENTIAL_STORE=database",
		"KEYVAULT_SESSION_COOKIE_SECURE=false",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return cmd, cancel, nil
}

// waitForServer polls /healthz until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.DB != nil {
		_ = db.Close(tc.DB)
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	for _, p := range []string{"../..", "..", "."} {
		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return filepath.Abs(p)
		}
	}
	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies db/migrations with golang-migrate, the same way
// `keyvaultctl db migrate` does.
func runMigrations(migrationsDir, dbURL string) error {
	m, err := migrate.New("file://"+migrationsDir, dbURL+"&x-migrations-table=keyvault_schema_migrations")
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
