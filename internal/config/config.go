// Package config loads provledger settings from defaults, an optional YAML
// file, a .env file and PROVLEDGER_* environment variables, in increasing
// order of precedence. The decoded result is checked against an embedded
// CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaSrc string

// EnvPrefix prefixes every environment override, e.g. PROVLEDGER_PROOF_TIMEOUT.
const EnvPrefix = "PROVLEDGER"

// Config is the full provledger configuration.
type Config struct {
	Ledger LedgerConfig `mapstructure:"ledger" json:"ledger"`
	Proof  ProofConfig  `mapstructure:"proof" json:"proof"`
	HTTP   HTTPConfig   `mapstructure:"http" json:"http"`
	Log    LogConfig    `mapstructure:"log" json:"log"`
}

type LedgerConfig struct {
	DBPath string `mapstructure:"db_path" json:"db_path"`
}

type ProofConfig struct {
	ArtifactsDir string        `mapstructure:"artifacts_dir" json:"artifacts_dir"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
	// Eager loads and checks artifacts at startup instead of first use.
	Eager bool `mapstructure:"eager" json:"eager"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr" json:"addr"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to Info.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. When empty, provledger.yaml is
	// searched for in the working directory and ./configs.
	File string

	// EnvFile is a dotenv file loaded into the process environment before
	// reading. Missing files are ignored. Empty means ".env".
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ledger.db_path", "data/ledger.db")
	v.SetDefault("proof.artifacts_dir", "build")
	v.SetDefault("proof.timeout", "30s")
	v.SetDefault("proof.eager", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit_rps", 20)
	v.SetDefault("http.rate_limit_burst", 40)
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads and validates the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("provledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HTTP.CORSOrigins = splitOrigins(cfg.HTTP.CORSOrigins)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitOrigins accepts comma-separated env values such as
// PROVLEDGER_HTTP_CORS_ORIGINS="http://a,http://b".
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Issues: issues(err)}
	}
	return nil
}

// ValidationError lists every schema violation.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Issues, "; ")
}

func issues(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		path := strings.Join(e.Path(), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	return out
}
