package config

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/container-scaffold/internal/loader"
	"github.com/eugenenazirov/container-scaffold/internal/resolver"
)

const instance = "/app/instance"

func testOptions(t *testing.T, fsys afero.Fs, env map[string]string) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.InstancePath = instance
	opts.Fs = fsys
	opts.Getenv = func(key string) string { return env[key] }
	opts.Logger = zaptest.NewLogger(t)
	return opts
}

func mustWrite(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestBuildPrecedence(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, instance+"/settings.cfg", "K = 2\nFROM_SETTINGS = 'yes'\n")
	mustWrite(t, fsys, "/etc/override.cfg", "K = 3\n")

	opts := testOptions(t, fsys, map[string]string{DefaultOverrideEnv: "/etc/override.cfg"})
	opts.Mapping = map[string]any{"K": 1, "FROM_MAPPING": true}

	cfg, err := Build(opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if got, _ := cfg.Store.Get("K"); got != 3 {
		t.Fatalf("expected K=3, got %v", got)
	}
	if !cfg.Store.Has("FROM_MAPPING") || !cfg.Store.Has("FROM_SETTINGS") {
		t.Fatalf("expected keys from every layer, got %v", cfg.Store.Keys())
	}
	if cfg.Sources["K"] != SourceOverride || cfg.Sources["FROM_MAPPING"] != SourceMapping ||
		cfg.Sources["FROM_SETTINGS"] != SourceSettings {
		t.Fatalf("unexpected sources: %v", cfg.Sources)
	}
	if !cfg.SettingsLoaded {
		t.Fatalf("expected settings file to be reported as loaded")
	}
}

func TestBuildWithoutAnySourceSucceedsWhenNotRequired(t *testing.T) {
	cfg, err := Build(testOptions(t, afero.NewMemMapFs(), nil))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if cfg.Store.Len() != 0 || cfg.SettingsLoaded {
		t.Fatalf("expected empty configuration, got %v", cfg.Store.Keys())
	}
}

func TestBuildRequiredReportsFirstMissingKey(t *testing.T) {
	opts := testOptions(t, afero.NewMemMapFs(), nil)
	opts.Required = true
	opts.RequiredKeys = []string{"DATABASE_URL", "CUSTOM_SETTINGS"}

	_, err := Build(opts)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "DATABASE_URL" {
		t.Fatalf("expected first missing key DATABASE_URL, got %s", cfgErr.Key)
	}
	if !errors.Is(err, ErrMissingSetting) {
		t.Fatalf("expected ErrMissingSetting match")
	}
}

func TestBuildRequiredWithMappingOnly(t *testing.T) {
	opts := testOptions(t, afero.NewMemMapFs(), nil)
	opts.Required = true
	opts.Mapping = map[string]any{"TESTING": true}

	_, err := Build(opts)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Key != DefaultCustomKey {
		t.Fatalf("expected missing %s, got %v", DefaultCustomKey, err)
	}
}

func TestBuildRequiredSatisfiedBySettingsFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, instance+"/settings.cfg", "CUSTOM_SETTINGS = 'instance/config.yml'\n")
	mustWrite(t, fsys, instance+"/config.yml", "default_params:\n  a_key: some value\n")

	opts := testOptions(t, fsys, nil)
	opts.Required = true
	opts.Mapping = map[string]any{"TESTING": true}

	cfg, err := Build(opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	params, ok := cfg.Store.Mapping("default_params")
	if !ok || params["a_key"] != "some value" {
		t.Fatalf("expected custom settings to be resolved, got %v", params)
	}
	if cfg.Sources["default_params"] != SourceCustom {
		t.Fatalf("expected default_params from custom source, got %s", cfg.Sources["default_params"])
	}
	if ref, _ := cfg.Store.String(DefaultCustomKey); ref != "instance/config.yml" {
		t.Fatalf("expected reference string to stay in place, got %q", ref)
	}
}

func TestBuildMissingOverrideFileIsFatal(t *testing.T) {
	opts := testOptions(t, afero.NewMemMapFs(), map[string]string{DefaultOverrideEnv: "/some/path/fake.cfg"})
	opts.Mapping = map[string]any{"TESTING": true}

	_, err := Build(opts)
	if !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildMalformedSettingsFileIsFatal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, instance+"/settings.cfg", "THIS IS NOT A SETTING\n")

	_, err := Build(testOptions(t, fsys, nil))
	var parseErr *loader.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestBuildRelativeOverridePath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, instance+"/extra.cfg", "ANOTHER_VALUE = 'I am so extra'\n")

	cfg, err := Build(testOptions(t, fsys, map[string]string{DefaultOverrideEnv: "extra.cfg"}))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if v, _ := cfg.Store.String("ANOTHER_VALUE"); v != "I am so extra" {
		t.Fatalf("unexpected ANOTHER_VALUE %q", v)
	}
}

func TestBuildCustomSettingsMapping(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, "/custom/config.yml", "default_params:\n  a_key: another value\nextra_config:\n  important_stuff: abc\n")

	opts := testOptions(t, fsys, nil)
	opts.InstancePath = "/custom"
	opts.Mapping = map[string]any{
		"TESTING": true,
		DefaultCustomKey: map[string]any{
			"GIT_BASE_URL":  "http://foo.com/cgit",
			"DEFAULTS_FILE": "/custom/config.yml",
		},
	}

	cfg, err := Build(opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	custom, _ := cfg.Store.Mapping(DefaultCustomKey)
	if custom["GIT_BASE_URL"] != "http://foo.com/cgit" || custom["DEFAULTS_FILE"] != "/custom/config.yml" {
		t.Fatalf("expected custom mapping to be kept as-is, got %v", custom)
	}
	extra, _ := cfg.Store.Mapping("extra_config")
	if extra["important_stuff"] != "abc" {
		t.Fatalf("expected extra_config to be merged, got %v", extra)
	}
}

func TestBuildCustomSettingsFromEnv(t *testing.T) {
	t.Run("file reference", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		mustWrite(t, fsys, "/data/config.yml", "default_params:\n  key_two: 3\n")

		cfg, err := Build(testOptions(t, fsys, map[string]string{DefaultCustomKey: "/data/config.yml"}))
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		params, _ := cfg.Store.Mapping("default_params")
		if params["key_two"] != 3 {
			t.Fatalf("expected key_two=3, got %v", params)
		}
		if cfg.Store.Has(DefaultCustomKey) {
			t.Fatalf("expected env value not to be written into the store")
		}
	})

	t.Run("inline yaml", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		mustWrite(t, fsys, instance+"/extra.cfg", "[custom_section]\nkey=val\n")

		cfg, err := Build(testOptions(t, fsys, map[string]string{DefaultCustomKey: `{"A": "extra.cfg"}`}))
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		section, _ := cfg.Store.Mapping("custom_section")
		if section["key"] != "val" {
			t.Fatalf("expected custom_section.key=val, got %v", section)
		}
	})
}

func TestBuildPropagatesReferenceErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, instance+"/a.yml", "b: b.yml\n")
	mustWrite(t, fsys, instance+"/b.yml", "a: a.yml\n")

	opts := testOptions(t, fsys, nil)
	opts.Mapping = map[string]any{DefaultCustomKey: "a.yml"}

	if _, err := Build(opts); !errors.Is(err, resolver.ErrReferenceCycle) {
		t.Fatalf("expected ErrReferenceCycle, got %v", err)
	}

	opts.Mapping = map[string]any{DefaultCustomKey: "bad_config.yml"}
	if _, err := Build(opts); !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildReadsProcessEnvironmentByDefault(t *testing.T) {
	t.Setenv(DefaultOverrideEnv, "")
	t.Setenv(DefaultCustomKey, "")

	opts := DefaultOptions()
	opts.InstancePath = t.TempDir()
	opts.Mapping = map[string]any{"PORT": "8080"}

	cfg, err := Build(opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if v, _ := cfg.Store.String("PORT"); v != "8080" {
		t.Fatalf("unexpected PORT %q", v)
	}
}
