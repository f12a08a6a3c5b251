package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/jwebster45206/druid-of-peace/internal/config"
)

func TestNew_Production(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, &config.Config{Environment: "production", LogLevel: slog.LevelInfo})
	WithGameID(l, "abc").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if entry["game_id"] != "abc" {
		t.Errorf("expected game_id abc, got %v", entry["game_id"])
	}
}

func TestNew_DevelopmentLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, &config.Config{Environment: "development", LogLevel: slog.LevelWarn})
	l.Info("quiet")
	WithRequestID(l, "r1").Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "request_id=r1") {
		t.Errorf("expected request_id in output, got %q", out)
	}
}
