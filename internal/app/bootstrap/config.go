// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/userz/internal/app/system/auditlog"
	"github.com/dalemusser/userz/internal/app/system/personname"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is prepended to every environment variable (USERZ_MONGO_URI, ...).
const EnvPrefix = "USERZ"

// appKey describes one configuration value.
type appKey struct {
	Name    string
	Default any
	Desc    string
}

// appConfigKeys defines the configuration keys for userz.
// These are loaded through viper with support for:
//   - Config files: mongo_uri, log_level, etc.
//   - Environment variables: USERZ_MONGO_URI, USERZ_LOG_LEVEL, etc.
//   - Command-line flags: --mongo_uri, --log_level, etc.
var appConfigKeys = []appKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "userz", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 20, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 0, Desc: "MongoDB min connection pool size"},
	{Name: "mongo_timeout", Default: 10 * time.Second, Desc: "MongoDB connect and ping timeout"},

	// Operation timeouts
	{Name: "timeout_short", Default: 5 * time.Second, Desc: "Deadline for single-record operations"},
	{Name: "timeout_long", Default: 30 * time.Second, Desc: "Deadline for schema setup and deletes"},

	// Logging
	{Name: "log_level", Default: "info", Desc: "Log level: debug, info, warn, error"},
	{Name: "log_format", Default: "console", Desc: "Log format: 'json' or 'console'"},

	// Password hashing
	{Name: "bcrypt_cost", Default: 8, Desc: "bcrypt work factor for new password hashes"},

	// Display names
	{Name: "name_order", Default: "first_first", Desc: "Display name order: 'first_first' or 'last_first'"},
	{Name: "middle_name_mode", Default: "initial", Desc: "Middle name rendering: 'none', 'initial' or 'full'"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Password event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Account change logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// NewViper returns a viper instance with defaults and environment binding
// for every key in appConfigKeys.
func NewViper() *viper.Viper {
	v := viper.New()
	for _, k := range appConfigKeys {
		v.SetDefault(k.Name, k.Default)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers a flag for every configuration key on fs and binds it
// to v, so a flag set on the command line takes precedence over env and file.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	for _, k := range appConfigKeys {
		switch d := k.Default.(type) {
		case string:
			fs.String(k.Name, d, k.Desc)
		case int:
			fs.Int(k.Name, d, k.Desc)
		case bool:
			fs.Bool(k.Name, d, k.Desc)
		case time.Duration:
			fs.Duration(k.Name, d, k.Desc)
		default:
			return fmt.Errorf("config key %q: unsupported default type %T", k.Name, k.Default)
		}
		if err := v.BindPFlag(k.Name, fs.Lookup(k.Name)); err != nil {
			return fmt.Errorf("bind flag %q: %w", k.Name, err)
		}
	}
	return nil
}

// LoadConfig reads the optional config file and resolves AppConfig.
//
// Precedence is flags > env > file > defaults. configFile may be empty.
func LoadConfig(v *viper.Viper, configFile string, logger *zap.Logger) (AppConfig, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
		logger.Debug("loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	maxPool, err := poolSize(v, "mongo_max_pool_size")
	if err != nil {
		return AppConfig{}, err
	}
	minPool, err := poolSize(v, "mongo_min_pool_size")
	if err != nil {
		return AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         v.GetString("mongo_uri"),
		MongoDatabase:    v.GetString("mongo_database"),
		MongoMaxPoolSize: maxPool,
		MongoMinPoolSize: minPool,
		MongoTimeout:     v.GetDuration("mongo_timeout"),

		// Operation timeouts
		TimeoutShort: v.GetDuration("timeout_short"),
		TimeoutLong:  v.GetDuration("timeout_long"),

		// Logging
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		// Password hashing
		BcryptCost: v.GetInt("bcrypt_cost"),

		// Display names
		NameOrder:      v.GetString("name_order"),
		MiddleNameMode: v.GetString("middle_name_mode"),

		// Audit logging
		AuditLogAuth:  strings.ToLower(v.GetString("audit_log_auth")),
		AuditLogAdmin: strings.ToLower(v.GetString("audit_log_admin")),
	}

	return appCfg, nil
}

// poolSize reads a non-negative connection pool size.
func poolSize(v *viper.Viper, key string) (uint64, error) {
	n := v.GetInt(key)
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative (got %d)", key, n)
	}
	return uint64(n), nil
}

// ValidateConfig performs config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here to catch configuration errors early,
// before attempting to connect.
func ValidateConfig(appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	if appCfg.MongoTimeout <= 0 {
		return fmt.Errorf("mongo_timeout must be positive")
	}
	if appCfg.TimeoutShort <= 0 || appCfg.TimeoutLong <= 0 {
		return fmt.Errorf("timeout_short and timeout_long must be positive")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if _, err := personname.ParseOrder(appCfg.NameOrder); err != nil {
		return err
	}
	if _, err := personname.ParseMiddleMode(appCfg.MiddleNameMode); err != nil {
		return err
	}
	if !auditlog.ValidSetting(appCfg.AuditLogAuth) {
		return fmt.Errorf("audit_log_auth must be one of all, db, log, off (got %q)", appCfg.AuditLogAuth)
	}
	if !auditlog.ValidSetting(appCfg.AuditLogAdmin) {
		return fmt.Errorf("audit_log_admin must be one of all, db, log, off (got %q)", appCfg.AuditLogAdmin)
	}
	return nil
}

// Formatter builds the display-name formatter from config. Call after ValidateConfig.
func (c AppConfig) Formatter() personname.Formatter {
	order, _ := personname.ParseOrder(c.NameOrder)
	mode, _ := personname.ParseMiddleMode(c.MiddleNameMode)
	return personname.Formatter{Order: order, Middle: mode}
}
