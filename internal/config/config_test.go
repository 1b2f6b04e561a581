package config

import "testing"

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMinConns != 2 {
		t.Fatalf("expected default pool sizing 10/2, got %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if !cfg.ChatEnabled {
		t.Fatal("chat must default to enabled")
	}
	if cfg.ChatMessageMaxLength != 4000 {
		t.Fatalf("expected default max length 4000, got %d", cfg.ChatMessageMaxLength)
	}
	if cfg.AMQPExchange != "orya.events" || cfg.NotificationsQueue != "orya.notifications" {
		t.Fatalf("unexpected broker defaults %q / %q", cfg.AMQPExchange, cfg.NotificationsQueue)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("DB_MIN_CONNS", "5")
	t.Setenv("CHAT_ENABLED", "off")
	t.Setenv("CHAT_MESSAGE_MAX_LENGTH", "120")
	t.Setenv("APP_ENV", "DEV")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBMaxConns != 25 || cfg.DBMinConns != 5 {
		t.Fatalf("expected pool sizing 25/5, got %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.ChatEnabled {
		t.Fatal("CHAT_ENABLED=off must disable chat")
	}
	if cfg.ChatMessageMaxLength != 120 {
		t.Fatalf("expected max length 120, got %d", cfg.ChatMessageMaxLength)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("expected normalized development env, got %q", cfg.AppEnv)
	}
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	if got := getEnvInt("DB_MAX_CONNS", 10); got != 10 {
		t.Fatalf("expected fallback 10, got %d", got)
	}

	t.Setenv("DB_MAX_CONNS", "-3")
	if got := getEnvInt("DB_MAX_CONNS", 10); got != 10 {
		t.Fatalf("expected fallback for non-positive value, got %d", got)
	}
}
