package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides mirrors the settings that can be set from the environment.
// Unset variables leave their pointer nil.
type envOverrides struct {
	DataDir *string `env:"DATA_DIR"`
	Output  *string `env:"OUTPUT"`
	Codes   *string `env:"CODES"`

	Tolerance *float64 `env:"TOLERANCE"`
	Workers   *int     `env:"WORKERS"`
	Detail    *bool    `env:"DETAIL"`

	ProductAPI        *string  `env:"PRODUCT_API"`
	StaticBase        *string  `env:"STATIC_BASE"`
	Robotoff          *string  `env:"ROBOTOFF_URL"`
	Timeout           *int     `env:"TIMEOUT"`
	RequestsPerSecond *float64 `env:"REQUESTS_PER_SECOND"`
	ImageKeys         []string `env:"IMAGE_KEYS" envSeparator:","`

	CacheEnabled *bool   `env:"CACHE"`
	CacheDir     *string `env:"CACHE_DIR"`

	MinScore1 *float64 `env:"MIN_SCORE1"`
	MinScore2 *float64 `env:"MIN_SCORE2"`
}

// environment returns the variables of a .env file in dir overlaid with the
// process environment.
func environment(dir string) (map[string]string, error) {
	vars := map[string]string{}

	dotenv := filepath.Join(dir, ".env")
	fileVars, err := godotenv.Read(dotenv)
	switch {
	case err == nil:
		for k, v := range fileVars {
			vars[k] = v
		}
	case errors.Is(err, os.ErrNotExist):
		// .env is optional
	default:
		return nil, fmt.Errorf("reading %s: %w", dotenv, err)
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// applyEnv overlays NUTRIEVAL_* variables from environ onto cfg.
func applyEnv(cfg *ProjectConfig, environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	setString(&cfg.Paths.Data, o.DataDir)
	setString(&cfg.Paths.Output, o.Output)
	setString(&cfg.Paths.Codes, o.Codes)

	if o.Tolerance != nil {
		cfg.Evaluation.Tolerance = o.Tolerance
	}
	if o.Workers != nil {
		cfg.Evaluation.Workers = *o.Workers
	}
	if o.Detail != nil {
		cfg.Evaluation.Detail = o.Detail
	}

	setString(&cfg.Services.ProductAPI, o.ProductAPI)
	setString(&cfg.Services.StaticBase, o.StaticBase)
	setString(&cfg.Services.Robotoff, o.Robotoff)
	if o.Timeout != nil {
		cfg.Services.Timeout = *o.Timeout
	}
	if o.RequestsPerSecond != nil {
		cfg.Services.RequestsPerSecond = *o.RequestsPerSecond
	}
	if len(o.ImageKeys) > 0 {
		cfg.Services.ImageKeys = o.ImageKeys
	}

	if o.CacheEnabled != nil {
		cfg.Cache.Enabled = o.CacheEnabled
	}
	setString(&cfg.Cache.Dir, o.CacheDir)

	if o.MinScore1 != nil {
		cfg.Gates.MinScore1 = o.MinScore1
	}
	if o.MinScore2 != nil {
		cfg.Gates.MinScore2 = o.MinScore2
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}
