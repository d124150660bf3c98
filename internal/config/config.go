package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7480"
	DefaultDBFileName = ".ticketd.db"
	DefaultLogLevel   = "debug"
	ConfigFileName    = ".ticketd.toml"

	DoneDeniedForbid    = "forbid"
	DoneDeniedDowngrade = "downgrade"

	configDirEnvKey          = "TICKETD_CONFIG_DIR"
	trustProjectConfigEnvKey = "TICKETD_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "TICKETD_API_URL"
	dbPathEnvKey             = "TICKETD_DB"
	logLevelEnvKey           = "TICKETD_LOG_LEVEL"
	jwtSecretEnvKey          = "TICKETD_JWT_SECRET"
)

// AuthConfig controls how callers are identified.
type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. When empty, tokens are decoded
	// without verification and only used for attribution.
	JWTSecret      string `toml:"jwt_secret"`
	RequireAuth    bool   `toml:"require_auth"`
	AdminTokenHash string `toml:"admin_token_hash"`
}

// WorkflowConfig tunes the status workflow.
type WorkflowConfig struct {
	// DoneRoles lists project roles allowed to move tickets to Done. Empty
	// means anyone may.
	DoneRoles []string `toml:"done_roles"`
	// DoneDenied is "forbid" (403) or "downgrade" (request becomes QA).
	DoneDenied string `toml:"done_denied"`
}

// Config defines runtime configuration for ticketd.
type Config struct {
	APIURL                   string         `toml:"api_url"`
	DBPath                   string         `toml:"db_path"`
	LogLevel                 string         `toml:"log_level"`
	Auth                     AuthConfig     `toml:"auth"`
	Workflow                 WorkflowConfig `toml:"workflow"`
	TrustedProjectConfigPath string         `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Workflow: WorkflowConfig{
			DoneDenied: DoneDeniedForbid,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"auth.jwt_secret",
	"auth.require_auth",
	"auth.admin_token_hash",
	"workflow.done_roles",
	"workflow.done_denied",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "auth.jwt_secret":
		if c.Auth.JWTSecret == "" {
			return "", nil
		}
		return "<redacted>", nil
	case "auth.require_auth":
		return strconv.FormatBool(c.Auth.RequireAuth), nil
	case "auth.admin_token_hash":
		return c.Auth.AdminTokenHash, nil
	case "workflow.done_roles":
		return strings.Join(c.Workflow.DoneRoles, ","), nil
	case "workflow.done_denied":
		return c.Workflow.DoneDenied, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if level := strings.TrimSpace(os.Getenv(logLevelEnvKey)); level != "" {
		cfg.LogLevel = level
	}
	if secret := os.Getenv(jwtSecretEnvKey); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if err := cfg.normalizeWorkflow(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "auth.require_auth":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "workflow.done_roles":
		return splitCSV(value), nil
	case "workflow.done_denied":
		switch value {
		case DoneDeniedForbid, DoneDeniedDowngrade:
			return value, nil
		default:
			return nil, fmt.Errorf("%s must be %q or %q", key, DoneDeniedForbid, DoneDeniedDowngrade)
		}
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeWorkflow() error {
	c.Workflow.DoneDenied = strings.ToLower(strings.TrimSpace(c.Workflow.DoneDenied))
	switch c.Workflow.DoneDenied {
	case "":
		c.Workflow.DoneDenied = DoneDeniedForbid
	case DoneDeniedForbid, DoneDeniedDowngrade:
	default:
		return fmt.Errorf("invalid workflow.done_denied %q", c.Workflow.DoneDenied)
	}

	roles := make([]string, 0, len(c.Workflow.DoneRoles))
	for _, role := range c.Workflow.DoneRoles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role != "" {
			roles = append(roles, role)
		}
	}
	c.Workflow.DoneRoles = roles
	return nil
}
