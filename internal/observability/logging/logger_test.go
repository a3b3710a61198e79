package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "api", "warn", "json").Warn("vault_indexed", "chunks", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "api" || line["msg"] != "vault_indexed" || line["chunks"] != float64(3) {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestLevelFiltersAndTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "cli", "error", "TEXT")
	logger.Info("hidden")
	logger.Error("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("unexpected output %q", out)
	}
	if parseLevel(" Debug ") != slog.LevelDebug || parseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}
