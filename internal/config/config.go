package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Identity providers.
const (
	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

// DefaultDatabasePath is where the SQLite ledger lives unless configured.
const DefaultDatabasePath = "$HOME/.local/share/rupeeflow/rupeeflow.db"

// LoadDotEnv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.backend", BackendSQLite)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("auth.provider", AuthLocal)
	v.SetDefault("auth.session_ttl", 720*time.Hour)
	v.SetDefault("auth.base_url", "http://localhost:8080")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.cert_dir", "$HOME/.config/rupeeflow/certs")
	v.SetDefault("broker.exchange", "rupeeflow.changes")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("advisor.timeout", 30*time.Second)
	v.SetDefault("mail.smtp_port", 587)
}

// DatabaseConfig selects and locates the storage backend.
type DatabaseConfig struct {
	Backend             string
	Path                string
	FirestoreProject    string
	FirestoreCredential string
}

// LoadDatabaseConfig reads the database and firestore sections.
func LoadDatabaseConfig(v *viper.Viper) (DatabaseConfig, error) {
	cfg := DatabaseConfig{
		Backend:             strings.ToLower(v.GetString("database.backend")),
		Path:                ExpandPath(v.GetString("database.path")),
		FirestoreProject:    v.GetString("firestore.project_id"),
		FirestoreCredential: ExpandPath(v.GetString("firestore.credentials_file")),
	}
	return cfg, cfg.Validate()
}

// Validate checks the section for consistency.
func (c DatabaseConfig) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("%w: firestore.project_id", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database.backend %q", common.ErrInvalidConfig, c.Backend)
	}
	return nil
}

// GoogleOAuthConfig holds the Google sign-in client.
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// AuthConfig configures the identity provider.
type AuthConfig struct {
	Google          GoogleOAuthConfig
	Provider        string
	JWTSecret       string
	BaseURL         string
	FirebaseAPIKey  string
	FirebaseProject string
	SessionTTL      time.Duration
}

// LoadAuthConfig reads the auth section.
func LoadAuthConfig(v *viper.Viper) (AuthConfig, error) {
	cfg := AuthConfig{
		Provider:        strings.ToLower(v.GetString("auth.provider")),
		JWTSecret:       v.GetString("auth.jwt_secret"),
		BaseURL:         strings.TrimRight(v.GetString("auth.base_url"), "/"),
		SessionTTL:      v.GetDuration("auth.session_ttl"),
		FirebaseAPIKey:  v.GetString("auth.firebase.api_key"),
		FirebaseProject: v.GetString("firestore.project_id"),
		Google: GoogleOAuthConfig{
			ClientID:     v.GetString("auth.google.client_id"),
			ClientSecret: v.GetString("auth.google.client_secret"),
			RedirectURL:  v.GetString("auth.google.redirect_url"),
		},
	}
	if cfg.Google.RedirectURL == "" {
		cfg.Google.RedirectURL = cfg.BaseURL + "/api/auth/google/callback"
	}
	return cfg, cfg.Validate()
}

// Validate checks the section for consistency.
func (c AuthConfig) Validate() error {
	switch c.Provider {
	case AuthLocal:
		if len(c.JWTSecret) < 16 {
			return fmt.Errorf("%w: auth.jwt_secret must be at least 16 characters", common.ErrInvalidConfig)
		}
	case AuthFirebase:
		if c.FirebaseAPIKey == "" {
			return fmt.Errorf("%w: auth.firebase.api_key", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown auth.provider %q", common.ErrInvalidConfig, c.Provider)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: auth.session_ttl must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// MailConfig configures SMTP delivery. An empty host means links are logged.
type MailConfig struct {
	Host     string
	Username string
	Password string
	From     string
	Port     int
}

// LoadMailConfig reads the mail section.
func LoadMailConfig(v *viper.Viper) MailConfig {
	return MailConfig{
		Host:     v.GetString("mail.smtp_host"),
		Port:     v.GetInt("mail.smtp_port"),
		Username: v.GetString("mail.username"),
		Password: v.GetString("mail.password"),
		From:     v.GetString("mail.from"),
	}
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string
	CertDir        string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// TLS serves HTTPS with a self-signed certificate kept in CertDir.
	TLS bool
}

// LoadServerConfig reads the server section.
func LoadServerConfig(v *viper.Viper) (ServerConfig, error) {
	cfg := ServerConfig{
		Addr:           v.GetString("server.addr"),
		AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		TLS:            v.GetBool("server.tls"),
		CertDir:        ExpandPath(v.GetString("server.cert_dir")),
	}
	if cfg.Addr == "" {
		return cfg, fmt.Errorf("%w: server.addr", common.ErrMissingConfig)
	}
	return cfg, nil
}

// BrokerConfig configures cross-replica change notices.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// Enabled reports whether a broker URL is configured.
func (b BrokerConfig) Enabled() bool {
	return b.URL != ""
}

// LoadBrokerConfig reads the broker section.
func LoadBrokerConfig(v *viper.Viper) BrokerConfig {
	return BrokerConfig{
		URL:      v.GetString("broker.url"),
		Exchange: v.GetString("broker.exchange"),
	}
}
