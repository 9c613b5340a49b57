package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/Veraticus/rupeeflow/internal/advisor"
	"github.com/Veraticus/rupeeflow/internal/auth"
	"github.com/Veraticus/rupeeflow/internal/cloudstore"
	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/live"
	"github.com/Veraticus/rupeeflow/internal/llm"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
	"github.com/Veraticus/rupeeflow/internal/storage"
	"github.com/spf13/viper"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// deps holds the components shared by the subcommands.
type deps struct {
	store    *live.Store
	identity service.IdentityProvider
	// users is the local account table; nil with the firebase provider.
	users  service.UserStore
	db     *storage.SQLiteStorage
	logger *slog.Logger
	// extra is closed after store, for handles the store does not own.
	extra []func() error
}

// Close releases every handle opened by openDeps.
func (d *deps) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close store", "error", err)
		}
	}
	for _, fn := range d.extra {
		if err := fn(); err != nil {
			d.logger.Warn("failed to close resource", "error", err)
		}
	}
}

// openDeps builds the configured store and identity provider.
func openDeps(ctx context.Context) (*deps, error) {
	v := viper.GetViper()
	logger := slog.Default()

	dbCfg, err := config.LoadDatabaseConfig(v)
	if err != nil {
		return nil, err
	}
	authCfg, err := config.LoadAuthConfig(v)
	if err != nil {
		return nil, err
	}

	d := &deps{logger: logger}
	fail := func(err error) (*deps, error) {
		if d.store == nil && d.db != nil {
			_ = d.db.Close()
		}
		d.Close()
		return nil, err
	}

	var app *firebase.App
	if dbCfg.Backend == config.BackendFirestore || authCfg.Provider == config.AuthFirebase {
		app, err = cloudstore.NewApp(ctx, cloudstore.AppConfig{
			ProjectID:       dbCfg.FirestoreProject,
			CredentialsFile: dbCfg.FirestoreCredential,
		})
		if err != nil {
			return fail(err)
		}
	}

	// Local accounts always live in SQLite, whichever backend holds the ledger.
	if dbCfg.Backend == config.BackendSQLite || authCfg.Provider == config.AuthLocal {
		d.db, err = initStorage(ctx, dbCfg.Path)
		if err != nil {
			return fail(err)
		}
	}

	var inner service.Storage
	if dbCfg.Backend == config.BackendFirestore {
		cs, err := cloudstore.New(ctx, app, logger)
		if err != nil {
			return fail(err)
		}
		inner = cs
		if d.db != nil {
			d.extra = append(d.extra, d.db.Close)
		}
	} else {
		inner = d.db
	}
	d.store = live.NewStore(inner, nil, logger)

	var google auth.GoogleIdentity
	if authCfg.Google.Enabled() {
		google = auth.NewGoogleSignIn(authCfg.Google)
	}
	mailer := auth.NewMailer(config.LoadMailConfig(v), logger)

	switch authCfg.Provider {
	case config.AuthFirebase:
		provider, err := auth.NewFirebaseProvider(ctx, app, mailer, auth.FirebaseOptions{
			Google: google,
			Logger: logger,
			APIKey: authCfg.FirebaseAPIKey,
		})
		if err != nil {
			return fail(err)
		}
		d.identity = provider
	default:
		d.users = d.db
		d.identity = auth.NewService(d.db, mailer, auth.Options{
			Google:     google,
			Logger:     logger,
			BaseURL:    authCfg.BaseURL,
			JWTSecret:  authCfg.JWTSecret,
			SessionTTL: authCfg.SessionTTL,
		})
	}
	return d, nil
}

// initStorage opens the SQLite database and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// newAdvisor returns the configured advisor, or nil when no API key is set.
func newAdvisor(logger *slog.Logger) (service.Advisor, func(), error) {
	cfg, err := config.LoadLLMConfig(viper.GetViper())
	if errors.Is(err, common.ErrMissingConfig) {
		logger.Debug("advisor disabled", "reason", err)
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return advisor.New(client, cfg.Timeout, logger), client.Close, nil
}

var errNotSignedIn = common.NewUserError(`Not signed in. Run "rupeeflow auth login" first.`, common.ErrUnauthorized)

// currentUser resolves who the command acts as: the --user account when
// given, otherwise the saved session.
func currentUser(ctx context.Context, d *deps) (*model.User, error) {
	if email := strings.TrimSpace(viper.GetString("cli.user")); email != "" {
		return userByEmail(ctx, d.users, email)
	}
	token, err := loadSession()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errNotSignedIn
	}
	user, err := d.identity.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, common.NewUserError(`Your session has expired. Run "rupeeflow auth login" again.`, err)
		}
		return nil, err
	}
	return user, nil
}

func userByEmail(ctx context.Context, users service.UserStore, email string) (*model.User, error) {
	if users == nil {
		return nil, common.NewUserError("--user only works with the local identity provider.", common.ErrInvalidConfig)
	}
	user, err := users.GetUserByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError(fmt.Sprintf("No local account for %s.", email), err)
	}
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, common.NewUserError("Verify your email before using this account.", common.ErrEmailNotVerified)
	}
	return user, nil
}

// withUser opens the dependencies, resolves the user and runs fn.
func withUser(ctx context.Context, fn func(d *deps, user *model.User) error) error {
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	user, err := currentUser(ctx, d)
	if err != nil {
		return err
	}
	return fn(d, user)
}

func sessionPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session"), nil
}

// loadSession returns the saved bearer token, or "" when there is none.
func loadSession() (string, error) {
	path, err := sessionPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func saveSession(token string) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func clearSession() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// parseMonth reads YYYY-MM in the local zone; "" means the current month.
func parseMonth(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	m, err := time.ParseInLocation(monthLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, common.NewUserError("Month must look like 2024-05.", fmt.Errorf("%w: month %q", common.ErrInvalidInput, raw))
	}
	return m, nil
}

// parseDate reads YYYY-MM-DD in the local zone; "" means today.
func parseDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, common.NewUserError("Dates must look like 2024-05-31.", fmt.Errorf("%w: date %q", common.ErrInvalidInput, raw))
	}
	return d, nil
}
