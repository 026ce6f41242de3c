package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "CHOIR"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabaseDriver = "sqlite"
	defaultDatabasePath   = "choir.db"
	defaultMaxOpenConns   = 10
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultAuthMode       = AuthModeJWKS
	defaultRolesClaim     = "realm_access.roles"
	defaultAdminRole      = "ADMIN"
	defaultTokenIssuer    = "choir-api"
	defaultTokenTTL       = 60 * time.Minute
	defaultAppName        = "choir-api"
	defaultAppVersion     = "dev"
)

const (
	// AuthModeJWKS verifies RS256 tokens against a remote key set.
	AuthModeJWKS = "jwks"
	// AuthModeSharedSecret verifies HS256 tokens signed with auth.signing_secret.
	AuthModeSharedSecret = "shared_secret"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress string

	DatabaseDriver       string
	DatabasePath         string
	DatabaseDSN          string
	DatabaseMaxOpenConns int

	LogLevel  string
	LogFormat string

	AuthMode          string
	AuthJWKSURL       string
	AuthIssuers       []string
	AuthAudience      string
	AuthSigningSecret string
	AuthRolesClaim    string
	AuthAdminRole     string
	AuthTokenIssuer   string
	AuthTokenTTL      time.Duration

	CORSAllowedOrigins []string

	AppName    string
	AppVersion string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("auth.mode", defaultAuthMode)
	configViper.SetDefault("auth.jwks_url", "")
	configViper.SetDefault("auth.issuers", []string{})
	configViper.SetDefault("auth.audience", "")
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.roles_claim", defaultRolesClaim)
	configViper.SetDefault("auth.admin_role", defaultAdminRole)
	configViper.SetDefault("auth.token_issuer", defaultTokenIssuer)
	configViper.SetDefault("auth.token_ttl_minutes", int(defaultTokenTTL/time.Minute))
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("app.name", defaultAppName)
	configViper.SetDefault("app.version", defaultAppVersion)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		DatabaseDriver:       strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:         configViper.GetString("database.path"),
		DatabaseDSN:          configViper.GetString("database.dsn"),
		DatabaseMaxOpenConns: configViper.GetInt("database.max_open_conns"),
		LogLevel:             configViper.GetString("log.level"),
		LogFormat:            configViper.GetString("log.format"),
		AuthMode:             strings.ToLower(strings.TrimSpace(configViper.GetString("auth.mode"))),
		AuthJWKSURL:          configViper.GetString("auth.jwks_url"),
		AuthIssuers:          splitList(configViper.GetStringSlice("auth.issuers")),
		AuthAudience:         configViper.GetString("auth.audience"),
		AuthSigningSecret:    configViper.GetString("auth.signing_secret"),
		AuthRolesClaim:       configViper.GetString("auth.roles_claim"),
		AuthAdminRole:        strings.ToUpper(strings.TrimSpace(configViper.GetString("auth.admin_role"))),
		AuthTokenIssuer:      configViper.GetString("auth.token_issuer"),
		AuthTokenTTL:         time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		CORSAllowedOrigins:   splitList(configViper.GetStringSlice("cors.allowed_origins")),
		AppName:              configViper.GetString("app.name"),
		AppVersion:           configViper.GetString("app.version"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.DatabaseDriver {
	case "sqlite":
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case "postgres":
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}

	switch c.AuthMode {
	case AuthModeJWKS:
		if strings.TrimSpace(c.AuthJWKSURL) == "" {
			return fmt.Errorf("auth.jwks_url is required in jwks mode")
		}
		if len(c.AuthIssuers) == 0 {
			return fmt.Errorf("auth.issuers is required in jwks mode")
		}
	case AuthModeSharedSecret:
		if strings.TrimSpace(c.AuthSigningSecret) == "" {
			return fmt.Errorf("auth.signing_secret is required in shared_secret mode")
		}
		if strings.TrimSpace(c.AuthTokenIssuer) == "" {
			return fmt.Errorf("auth.token_issuer is required in shared_secret mode")
		}
	default:
		return fmt.Errorf("auth.mode %q is not supported", c.AuthMode)
	}

	if c.AuthAdminRole == "" {
		return fmt.Errorf("auth.admin_role is required")
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	return nil
}

// splitList accepts both list values and comma separated strings from the environment.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
