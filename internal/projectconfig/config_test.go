package projectconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	// Paths
	assertEqual(t, "Paths.Data", "data/", cfg.Paths.Data)
	assertEqual(t, "Paths.Output", "result.csv", cfg.Paths.Output)
	assertEqual(t, "Paths.Codes", "", cfg.Paths.Codes)

	// Evaluation
	assertFloatPtr(t, "Evaluation.Tolerance", 0.1, cfg.Evaluation.Tolerance)
	assertEqualInt(t, "Evaluation.Workers", 1, cfg.Evaluation.Workers)
	assertBoolPtr(t, "Evaluation.Detail", false, cfg.Evaluation.Detail)

	// Services
	assertEqual(t, "Services.ProductAPI", "https://world.openfoodfacts.org", cfg.Services.ProductAPI)
	assertEqual(t, "Services.StaticBase", "https://static.openfoodfacts.org", cfg.Services.StaticBase)
	assertEqual(t, "Services.Robotoff", "https://robotoff.openfoodfacts.org", cfg.Services.Robotoff)
	assertEqualInt(t, "Services.Timeout", 30, cfg.Services.Timeout)
	if cfg.Services.RequestsPerSecond != 2 {
		t.Errorf("Services.RequestsPerSecond = %v, want 2", cfg.Services.RequestsPerSecond)
	}
	assertEqual(t, "Services.ImageKeys", "nutrition_fr,nutrition_en,nutrition*", strings.Join(cfg.Services.ImageKeys, ","))

	// Cache
	assertBoolPtr(t, "Cache.Enabled", false, cfg.Cache.Enabled)
	assertEqual(t, "Cache.Dir", ".nutrieval-cache", cfg.Cache.Dir)

	// Gates
	if cfg.Gates.MinScore1 != nil || cfg.Gates.MinScore2 != nil {
		t.Error("Gates should be unset by default")
	}
}

func TestNew_ImageKeysAreCopied(t *testing.T) {
	cfg := New()
	cfg.Services.ImageKeys[0] = "front_fr"

	assertEqual(t, "Services.ImageKeys[0]", "nutrition_fr", New().Services.ImageKeys[0])
}

func TestLoadFile_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
paths:
  data: "truth/"
  output: "out/result.csv"
  codes: "codes.csv"
evaluation:
  tolerance: 0.05
  workers: 4
  detail: true
services:
  product_api: "http://localhost:8080"
  static_base: "http://localhost:8081"
  robotoff: "http://localhost:5500"
  timeout: 10
  requests_per_second: 0.5
  image_keys: ["nutrition_de", "nutrition*"]
cache:
  enabled: true
  dir: ".my-cache"
gates:
  min_score1: 0.8
  min_score2: 0.5
`)

	cfg, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	assertEqual(t, "Paths.Data", filepath.Join(dir, "truth"), cfg.Paths.Data)
	assertEqual(t, "Paths.Output", filepath.Join(dir, "out", "result.csv"), cfg.Paths.Output)
	assertEqual(t, "Paths.Codes", filepath.Join(dir, "codes.csv"), cfg.Paths.Codes)

	assertFloatPtr(t, "Evaluation.Tolerance", 0.05, cfg.Evaluation.Tolerance)
	assertEqualInt(t, "Evaluation.Workers", 4, cfg.Evaluation.Workers)
	assertBoolPtr(t, "Evaluation.Detail", true, cfg.Evaluation.Detail)

	assertEqual(t, "Services.ProductAPI", "http://localhost:8080", cfg.Services.ProductAPI)
	assertEqual(t, "Services.StaticBase", "http://localhost:8081", cfg.Services.StaticBase)
	assertEqual(t, "Services.Robotoff", "http://localhost:5500", cfg.Services.Robotoff)
	assertEqualInt(t, "Services.Timeout", 10, cfg.Services.Timeout)
	if cfg.Services.RequestsPerSecond != 0.5 {
		t.Errorf("Services.RequestsPerSecond = %v, want 0.5", cfg.Services.RequestsPerSecond)
	}
	assertEqual(t, "Services.ImageKeys", "nutrition_de,nutrition*", strings.Join(cfg.Services.ImageKeys, ","))

	assertBoolPtr(t, "Cache.Enabled", true, cfg.Cache.Enabled)
	assertEqual(t, "Cache.Dir", filepath.Join(dir, ".my-cache"), cfg.Cache.Dir)

	assertFloatPtr(t, "Gates.MinScore1", 0.8, cfg.Gates.MinScore1)
	assertFloatPtr(t, "Gates.MinScore2", 0.5, cfg.Gates.MinScore2)
}

func TestLoadFile_AbsolutePathsKept(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "truth")
	writeFile(t, dir, FileName, "paths:\n  data: "+abs+"\n")

	cfg, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	assertEqual(t, "Paths.Data", abs, cfg.Paths.Data)
}

func TestLoadFile_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
evaluation:
  workers: 8
`)

	cfg, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	assertEqualInt(t, "Evaluation.Workers", 8, cfg.Evaluation.Workers)
	// Everything else keeps its default
	assertFloatPtr(t, "Evaluation.Tolerance", 0.1, cfg.Evaluation.Tolerance)
	assertEqual(t, "Paths.Data", "data/", cfg.Paths.Data)
	assertEqualInt(t, "Services.Timeout", 30, cfg.Services.Timeout)
}

func TestLoadFile_ZeroToleranceIsKept(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
evaluation:
  tolerance: 0
`)

	cfg, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	assertFloatPtr(t, "Evaluation.Tolerance", 0, cfg.Evaluation.Tolerance)
}

func TestLoadFile_MissingFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	// Should be identical to New()
	defaults := New()
	assertEqual(t, "Paths.Data", defaults.Paths.Data, cfg.Paths.Data)
	assertEqual(t, "Paths.Output", defaults.Paths.Output, cfg.Paths.Output)
	assertEqualInt(t, "Services.Timeout", defaults.Services.Timeout, cfg.Services.Timeout)
	assertEqual(t, "Cache.Dir", defaults.Cache.Dir, cfg.Cache.Dir)
}

func TestLoadFile_EmptyFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "")

	cfg, err := LoadFile(dir)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	assertEqual(t, "Paths.Output", "result.csv", cfg.Paths.Output)
}

func TestLoadFile_InvalidYAML_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
paths:
  data: [not valid yaml
    this is broken
`)

	_, err := LoadFile(dir)
	if err == nil {
		t.Fatal("LoadFile() should return error for invalid YAML")
	}
}

func TestLoadFile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown section", "server:\n  port: 3000\n"},
		{"unknown key", "paths:\n  skills: x\n"},
		{"tolerance above one", "evaluation:\n  tolerance: 1.5\n"},
		{"zero workers", "evaluation:\n  workers: 0\n"},
		{"string timeout", "services:\n  timeout: soon\n"},
		{"zero rate", "services:\n  requests_per_second: 0\n"},
		{"gate out of range", "gates:\n  min_score1: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, FileName, tt.content)

			_, err := LoadFile(dir)
			if err == nil {
				t.Fatal("LoadFile() should reject the file")
			}
			if !strings.Contains(err.Error(), "invalid "+FileName) {
				t.Errorf("error = %q, want it to name %s", err, FileName)
			}
		})
	}
}

func TestLoadFile_WalksUpDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, `
paths:
  data: found-it/
`)

	child := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(child)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	assertEqual(t, "Paths.Data", filepath.Join(root, "found-it"), cfg.Paths.Data)
	// Other defaults still populated
	assertEqual(t, "Paths.Output", "result.csv", cfg.Paths.Output)
}

func TestBoolPointerFields(t *testing.T) {
	t.Run("defaults preserved when not set in YAML", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, FileName, `
paths:
  data: truth/
`)
		cfg, err := LoadFile(dir)
		if err != nil {
			t.Fatalf("LoadFile() error: %v", err)
		}
		// Detail not in file → default (false) preserved by merge
		assertBoolPtr(t, "Evaluation.Detail", false, cfg.Evaluation.Detail)
	})

	t.Run("explicitly false", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, FileName, `
evaluation:
  detail: false
cache:
  enabled: false
`)
		cfg, err := LoadFile(dir)
		if err != nil {
			t.Fatalf("LoadFile() error: %v", err)
		}
		assertBoolPtr(t, "Evaluation.Detail", false, cfg.Evaluation.Detail)
		assertBoolPtr(t, "Cache.Enabled", false, cfg.Cache.Enabled)
	})

	t.Run("explicitly true", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, FileName, `
evaluation:
  detail: true
cache:
  enabled: true
`)
		cfg, err := LoadFile(dir)
		if err != nil {
			t.Fatalf("LoadFile() error: %v", err)
		}
		assertBoolPtr(t, "Evaluation.Detail", true, cfg.Evaluation.Detail)
		assertBoolPtr(t, "Cache.Enabled", true, cfg.Cache.Enabled)
	})
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
paths:
  output: from-file.csv
evaluation:
  workers: 2
`)
	t.Setenv("NUTRIEVAL_OUTPUT", "from-env.csv")
	t.Setenv("NUTRIEVAL_TOLERANCE", "0.2")
	t.Setenv("NUTRIEVAL_CACHE", "true")
	t.Setenv("NUTRIEVAL_IMAGE_KEYS", "nutrition_it,nutrition_fr")
	t.Setenv("NUTRIEVAL_MIN_SCORE2", "0.75")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Paths.Output", "from-env.csv", cfg.Paths.Output)
	assertEqualInt(t, "Evaluation.Workers", 2, cfg.Evaluation.Workers)
	assertFloatPtr(t, "Evaluation.Tolerance", 0.2, cfg.Evaluation.Tolerance)
	assertBoolPtr(t, "Cache.Enabled", true, cfg.Cache.Enabled)
	assertEqual(t, "Services.ImageKeys", "nutrition_it,nutrition_fr", strings.Join(cfg.Services.ImageKeys, ","))
	assertFloatPtr(t, "Gates.MinScore2", 0.75, cfg.Gates.MinScore2)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "NUTRIEVAL_DATA_DIR=dotenv-data/\nNUTRIEVAL_WORKERS=6\n")
	// Process environment wins over .env
	t.Setenv("NUTRIEVAL_WORKERS", "3")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Paths.Data", "dotenv-data/", cfg.Paths.Data)
	assertEqualInt(t, "Evaluation.Workers", 3, cfg.Evaluation.Workers)
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NUTRIEVAL_WORKERS", "many")

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() should reject a non-numeric NUTRIEVAL_WORKERS")
	}
}

// --- test helpers ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}

func assertBoolPtr(t *testing.T, field string, want bool, got *bool) {
	t.Helper()
	if got == nil {
		t.Errorf("%s is nil, want *%v", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}

func assertFloatPtr(t *testing.T, field string, want float64, got *float64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s is nil, want *%v", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}
