package sysutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func restoreGlobals(t *testing.T) {
	t.Helper()
	origLogger, origLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = origLogger
		zerolog.SetGlobalLevel(origLevel)
	})
}

func TestSetupLogger_JSON(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer
	SetupLogger(&buf, "info", false, "saucebot", "1.2.3")

	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("hello")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line (debug filtered), got %q", buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if m["service"] != "saucebot" || m["version"] != "1.2.3" || m["message"] != "hello" || m["k"] != "v" {
		t.Fatalf("unexpected fields %v", m)
	}
	if _, ok := m["time"]; !ok {
		t.Fatalf("timestamp missing: %v", m)
	}
}

func TestSetupLogger_Pretty(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer
	SetupLogger(&buf, "debug", true, "saucebot", "dev")

	log.Debug().Msg("console line")
	out := buf.String()
	if !strings.Contains(out, "console line") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console formatted output, got %q", out)
	}
}
