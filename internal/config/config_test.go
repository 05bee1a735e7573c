package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OPENAI_COMPAT_API_KEY", "SQL2PYSPARK_REMOTE_API_KEY"} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Backend != llm.BackendRemote {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.Remote.Provider != "openai" || cfg.Remote.Model != "gpt-3.5-turbo" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Local.MaxLength != 200 {
		t.Errorf("Local.MaxLength = %d, want 200", cfg.Local.MaxLength)
	}
	if cfg.Archive.Enabled {
		t.Error("archive enabled by default")
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), `
backend: local
local:
  model: /models/tiny.gguf
  max_length: 64
archive:
  enabled: true
`)
	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Backend != llm.BackendLocal || cfg.Local.Model != "/models/tiny.gguf" || cfg.Local.MaxLength != 64 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Local.Threads != 4 {
		t.Errorf("unset key lost its default: threads=%d", cfg.Local.Threads)
	}
	if !cfg.Archive.Enabled {
		t.Error("archive.enabled not read")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SQL2PYSPARK_REMOTE_MODEL", "gpt-4o-mini")
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Remote.Model != "gpt-4o-mini" {
		t.Errorf("Remote.Model = %q", cfg.Remote.Model)
	}
}

func TestCredentialSources(t *testing.T) {
	t.Run("config value with env reference", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("MY_KEY", "sk-from-ref")
		cfg, _ := LoadFrom(t.TempDir())
		cfg.Remote.APIKey = "${MY_KEY}"
		if got, _ := cfg.Credential(); got != "sk-from-ref" {
			t.Errorf("Credential() = %q", got)
		}
	})
	t.Run("provider env var", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("OPENAI_API_KEY", "sk-env")
		cfg, _ := LoadFrom(t.TempDir())
		if got, _ := cfg.Credential(); got != "sk-env" {
			t.Errorf("Credential() = %q", got)
		}
	})
	t.Run("dotenv file", func(t *testing.T) {
		clearKeys(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".env"), "OPENAI_API_KEY=sk-dotenv\n")
		cfg, _ := LoadFrom(dir)
		if got, _ := cfg.Credential(); got != "sk-dotenv" {
			t.Errorf("Credential() = %q", got)
		}
		if os.Getenv("OPENAI_API_KEY") != "" {
			t.Error(".env leaked into the process environment")
		}
	})
	t.Run("secrets toml", func(t *testing.T) {
		clearKeys(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".streamlit", "secrets.toml"), "OPENAI_API_KEY = \"sk-toml\"\n")
		cfg, _ := LoadFrom(dir)
		if got, _ := cfg.Credential(); got != "sk-toml" {
			t.Errorf("Credential() = %q", got)
		}
	})
	t.Run("provider specific variable", func(t *testing.T) {
		clearKeys(t)
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		t.Setenv("OPENAI_API_KEY", "sk-openai")
		cfg, _ := LoadFrom(t.TempDir())
		cfg.ApplyOverrides("", "anthropic")
		if got, _ := cfg.Credential(); got != "sk-ant" {
			t.Errorf("Credential() = %q", got)
		}
	})
	t.Run("none", func(t *testing.T) {
		clearKeys(t)
		cfg, _ := LoadFrom(t.TempDir())
		got, err := cfg.Credential()
		if err != nil || got != "" {
			t.Errorf("Credential() = %q, %v", got, err)
		}
	})
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()

	cfg.ApplyOverrides("", "openai:gpt-4o")
	if cfg.Remote.Provider != "openai" || cfg.Remote.Model != "gpt-4o" {
		t.Fatalf("Remote = %+v", cfg.Remote)
	}

	cfg.ApplyOverrides("", "anthropic")
	if cfg.Remote.Provider != "anthropic" || cfg.Remote.Model != "" {
		t.Fatalf("switching provider kept model: %+v", cfg.Remote)
	}

	cfg.ApplyOverrides("local", "")
	if cfg.Backend != "local" || cfg.Remote.Provider != "anthropic" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestAdapterConfig(t *testing.T) {
	clearKeys(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, _ := LoadFrom(t.TempDir())

	ac, err := cfg.AdapterConfig(true)
	if err != nil {
		t.Fatalf("AdapterConfig: %v", err)
	}
	if ac.Remote.APIKey != "sk-test" || ac.Remote.Model != "gpt-3.5-turbo" || !ac.Debug {
		t.Errorf("AdapterConfig = %+v", ac)
	}

	cfg.Backend = llm.BackendLocal
	ac, err = cfg.AdapterConfig(false)
	if err != nil {
		t.Fatalf("AdapterConfig local: %v", err)
	}
	if ac.Remote.APIKey != "" {
		t.Error("local backend resolved a remote key")
	}
	if ac.Local.MaxLength != 200 {
		t.Errorf("Local.MaxLength = %d", ac.Local.MaxLength)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Backend = llm.BackendLocal
	cfg.Local.Model = "/models/tiny.gguf"
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFrom(filepath.Dir(path))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Backend != llm.BackendLocal || loaded.Local.Model != "/models/tiny.gguf" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestAdapterConfigDropsOpenAIDefaultForOtherProviders(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg := Default()
	cfg.Remote.Provider = "anthropic"

	ac, err := cfg.AdapterConfig(false)
	if err != nil {
		t.Fatal(err)
	}
	if ac.Remote.Model != "" {
		t.Errorf("Remote.Model = %q, want provider default", ac.Remote.Model)
	}
}

func TestTelegramToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	cfg := Default()
	token, err := cfg.TelegramToken()
	if err != nil || token != "from-env" {
		t.Fatalf("TelegramToken() = %q, %v; want env fallback", token, err)
	}

	t.Setenv("SQL2PYSPARK_TG", "from-config")
	cfg.Telegram.Token = "${SQL2PYSPARK_TG}"
	token, err = cfg.TelegramToken()
	if err != nil || token != "from-config" {
		t.Fatalf("TelegramToken() = %q, %v; want expanded config value", token, err)
	}
}
