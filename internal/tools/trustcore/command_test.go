package trustcore

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/di"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
)

func testOptions(t *testing.T, previewSecret string) *options {
	t.Helper()
	mr := miniredis.RunT(t)
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	return &options{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{
				AppEnv:                 "test",
				PublicBaseURL:          "https://admin.example.com",
				TrustMode:              config.TrustModeFixtureBypass,
				SessionSecret:          "cli-session-secret-0123456789abc",
				SessionIssuer:          "trustcore-cli-test",
				SessionTTL:             time.Hour,
				RefreshTokenTTL:        time.Hour,
				RefreshStore:           "database",
				PreviewSecret:          previewSecret,
				PreviewDefaultTTL:      time.Hour,
				FixtureAssertionSecret: "cli-fixture-secret-0123456789abc",
				LoginFailureThreshold:  5,
				LoginFailureWindow:     time.Minute,
				RedisAddr:              mr.Addr(),
				RedisKeyPrefix:         "cli",
				DatabaseDriver:         "sqlite",
				DatabaseURL:            dbPath,
				RoleCacheTTL:           time.Minute,
			}, nil
		},
		initCore: di.InitializeCore,
	}
}

func execute(opts *options, args ...string) (string, error) {
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewSignPrintsLink(t *testing.T) {
	opts := testOptions(t, "cli-preview-secret-0123456789abc")
	out, err := execute(opts, "preview", "sign", "post-42", "--ttl", "10m")
	if err != nil {
		t.Fatalf("preview sign: %v", err)
	}
	var link struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(out), &link); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if !strings.HasPrefix(link.URL, "https://admin.example.com/preview/post-42?token=") || link.Token == "" {
		t.Fatalf("unexpected link %+v", link)
	}
}

func TestPreviewSignWithoutSecretFails(t *testing.T) {
	_, err := execute(testOptions(t, ""), "preview", "sign", "post-42")
	if !errors.Is(err, security.ErrPreviewSecretNotConfigured) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestRevokeAndPrune(t *testing.T) {
	opts := testOptions(t, "")
	out, err := execute(opts, "revoke", "sub-1")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !strings.Contains(out, `"subject": "sub-1"`) {
		t.Fatalf("unexpected revoke output %q", out)
	}

	out, err = execute(opts, "prune")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(out, `"deleted": 0`) || !strings.Contains(out, `"store": "database"`) {
		t.Fatalf("unexpected prune output %q", out)
	}
}

func TestRevokeRequiresSubject(t *testing.T) {
	if _, err := execute(testOptions(t, ""), "revoke"); err == nil {
		t.Fatal("expected missing argument error")
	}
}
