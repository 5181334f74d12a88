package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = secret ,bad, =x,team=hooks")
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %v", got)
	}
	if got["api-key"] != "secret" || got["team"] != "hooks" {
		t.Fatalf("unexpected headers: %v", got)
	}
}

func TestFromEnvEnablesTracesWithEndpoint(t *testing.T) {
	env := map[string]string{}
	getenv := func(key string) string { return env[key] }

	cfg := FromEnv("hooksim", "dev", getenv)
	if cfg.Traces {
		t.Fatalf("traces enabled without endpoint")
	}
	if !cfg.Insecure {
		t.Fatalf("expected insecure default")
	}

	env["OTEL_EXPORTER_OTLP_ENDPOINT"] = "collector:4318"
	env["OTEL_EXPORTER_OTLP_INSECURE"] = "false"
	env["OTEL_EXPORTER_OTLP_HEADERS"] = "x=1"
	cfg = FromEnv("hooksim", "dev", getenv)
	if !cfg.Traces || cfg.Endpoint != "collector:4318" || cfg.Insecure || cfg.Headers["x"] != "1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestInitWithoutTraces(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without service name")
	}
	shutdown, err := Init(context.Background(), Config{ServiceName: "hooksim"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
