package config

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassifyConfigLoadError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "none", err: nil, want: "none"},
		{name: "validation", err: fmt.Errorf("%w: %w", errValidation, errors.New("SESSION_SECRET must be at least 32 bytes")), want: "validation"},
		{name: "parse", err: fmt.Errorf("%w SESSION_TTL: %w", errParse, errors.New("invalid duration")), want: "parse"},
		{name: "env file", err: fmt.Errorf("%w: %w", errEnvFile, errors.New("unexpected character")), want: "env_file"},
		{name: "plain text is not classified", err: errors.New("validate config: looks similar"), want: "load"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyConfigLoadError(tc.err); got != tc.want {
				t.Fatalf("classifyConfigLoadError()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestLoadEventAttributes(t *testing.T) {
	attrs := loadEventAttributes(loadEvent{profile: " Production ", trustMode: TrustModeStrict, store: "redis", errorClass: "none"})
	got := map[string]string{}
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.AsString()
	}
	want := map[string]string{
		"profile":       "production",
		"trust_mode":    "strict",
		"refresh_store": "redis",
		"outcome":       "success",
		"error_class":   "none",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("attribute %s=%q want %q", k, got[k], v)
		}
	}

	failed := loadEventAttributes(loadEvent{errorClass: "validation"})
	for _, kv := range failed {
		switch string(kv.Key) {
		case "trust_mode":
			if kv.Value.AsString() != "unresolved" {
				t.Fatalf("expected unresolved trust mode, got %q", kv.Value.AsString())
			}
		case "outcome":
			if kv.Value.AsString() != "error" {
				t.Fatalf("expected error outcome, got %q", kv.Value.AsString())
			}
		}
	}
}

func FuzzNormalizeConfigProfileRobustness(f *testing.F) {
	f.Add("  ProD  ")
	f.Add("   ")
	f.Add("")
	f.Add(strings.Repeat("A", 4096))

	f.Fuzz(func(t *testing.T, raw string) {
		got := normalizeConfigProfile(raw)
		if got == "" {
			t.Fatal("normalized profile must not be empty")
		}
		if strings.TrimSpace(raw) == "" && got != "unknown" {
			t.Fatalf("expected unknown for blank input, got %q", got)
		}
		if utf8.ValidString(raw) && !utf8.ValidString(got) {
			t.Fatalf("normalized profile must stay valid UTF-8: %q", got)
		}
	})
}
