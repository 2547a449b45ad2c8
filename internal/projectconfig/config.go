// Package projectconfig provides the ProjectConfig struct and loader for
// .nutrieval.yaml project-level configuration files and NUTRIEVAL_*
// environment overrides.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openfoodfacts/nutrieval/internal/prediction"
	"github.com/openfoodfacts/nutrieval/internal/scoring"
	"github.com/openfoodfacts/nutrieval/internal/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up from the working
// directory upwards.
const FileName = ".nutrieval.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NUTRIEVAL_"

// Default values for project configuration. These are the single source of
// truth: New() references them and no other code should duplicate them.
const (
	DefaultDataDir = "data/"
	DefaultOutput  = "result.csv"

	DefaultTolerance = scoring.DefaultTolerance
	DefaultWorkers   = 1

	DefaultTimeout           = 30
	DefaultRequestsPerSecond = prediction.DefaultRequestsPerSecond

	DefaultCacheDir = ".nutrieval-cache"
)

// PathsConfig holds input and output locations.
type PathsConfig struct {
	Data   string `yaml:"data,omitempty"`
	Output string `yaml:"output,omitempty"`
	Codes  string `yaml:"codes,omitempty"`
}

// EvaluationConfig holds comparison and batch settings.
type EvaluationConfig struct {
	Tolerance *float64 `yaml:"tolerance,omitempty"`
	Workers   int      `yaml:"workers,omitempty"`
	Detail    *bool    `yaml:"detail,omitempty"`
}

// ServicesConfig holds the endpoints of the prediction pipeline.
type ServicesConfig struct {
	ProductAPI        string   `yaml:"product_api,omitempty"`
	StaticBase        string   `yaml:"static_base,omitempty"`
	Robotoff          string   `yaml:"robotoff,omitempty"`
	Timeout           int      `yaml:"timeout,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty"`
	ImageKeys         []string `yaml:"image_keys,omitempty"`
}

// CacheConfig holds prediction cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// GatesConfig holds the minimum mean scores a run must reach.
type GatesConfig struct {
	MinScore1 *float64 `yaml:"min_score1,omitempty"`
	MinScore2 *float64 `yaml:"min_score2,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .nutrieval.yaml.
type ProjectConfig struct {
	Paths      PathsConfig      `yaml:"paths,omitempty"`
	Evaluation EvaluationConfig `yaml:"evaluation,omitempty"`
	Services   ServicesConfig   `yaml:"services,omitempty"`
	Cache      CacheConfig      `yaml:"cache,omitempty"`
	Gates      GatesConfig      `yaml:"gates,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Data:   DefaultDataDir,
			Output: DefaultOutput,
		},
		Evaluation: EvaluationConfig{
			Tolerance: float64Ptr(DefaultTolerance),
			Workers:   DefaultWorkers,
			Detail:    boolPtr(false),
		},
		Services: ServicesConfig{
			ProductAPI:        prediction.DefaultProductAPI,
			StaticBase:        prediction.DefaultStaticBase,
			Robotoff:          prediction.DefaultRobotoff,
			Timeout:           DefaultTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			ImageKeys:         append([]string(nil), prediction.DefaultImageKeys...),
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .nutrieval.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, fills in missing fields with defaults, then
// applies NUTRIEVAL_* overrides from the environment and from a .env file in
// startDir. Process environment wins over .env.
// Relative paths in the file are taken relative to the file's directory.
// If no config file is found, defaults plus overrides are returned.
func Load(startDir string) (*ProjectConfig, error) {
	cfg, err := LoadFile(startDir)
	if err != nil {
		return nil, err
	}

	environ, err := environment(startDir)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, environ); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile is Load without environment overrides.
func LoadFile(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, path, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s: %s", FileName, strings.Join(errs, "; "))
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	resolvePaths(&fileCfg, filepath.Dir(path))

	// Merge file values onto defaults.
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .nutrieval.yaml (max 10
// levels) and returns its content and path. Returns os.ErrNotExist if no
// config file is found. Propagates real I/O errors (e.g. permission denied)
// instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, string, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

// resolvePaths makes the relative paths of a config file relative to the
// directory holding it.
func resolvePaths(cfg *ProjectConfig, baseDir string) {
	for _, p := range []*string{&cfg.Paths.Data, &cfg.Paths.Output, &cfg.Paths.Codes, &cfg.Cache.Dir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Data != "" {
		dst.Paths.Data = src.Paths.Data
	}
	if src.Paths.Output != "" {
		dst.Paths.Output = src.Paths.Output
	}
	if src.Paths.Codes != "" {
		dst.Paths.Codes = src.Paths.Codes
	}

	// Evaluation
	if src.Evaluation.Tolerance != nil {
		dst.Evaluation.Tolerance = src.Evaluation.Tolerance
	}
	if src.Evaluation.Workers != 0 {
		dst.Evaluation.Workers = src.Evaluation.Workers
	}
	if src.Evaluation.Detail != nil {
		dst.Evaluation.Detail = src.Evaluation.Detail
	}

	// Services
	if src.Services.ProductAPI != "" {
		dst.Services.ProductAPI = src.Services.ProductAPI
	}
	if src.Services.StaticBase != "" {
		dst.Services.StaticBase = src.Services.StaticBase
	}
	if src.Services.Robotoff != "" {
		dst.Services.Robotoff = src.Services.Robotoff
	}
	if src.Services.Timeout != 0 {
		dst.Services.Timeout = src.Services.Timeout
	}
	if src.Services.RequestsPerSecond != 0 {
		dst.Services.RequestsPerSecond = src.Services.RequestsPerSecond
	}
	if len(src.Services.ImageKeys) > 0 {
		dst.Services.ImageKeys = src.Services.ImageKeys
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	// Gates
	if src.Gates.MinScore1 != nil {
		dst.Gates.MinScore1 = src.Gates.MinScore1
	}
	if src.Gates.MinScore2 != nil {
		dst.Gates.MinScore2 = src.Gates.MinScore2
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func float64Ptr(f float64) *float64 {
	return &f
}
