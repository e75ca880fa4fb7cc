package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-mailrender/pkg/logging"
)

func TestSetup_JSONLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup(logging.Options{Level: "info", Format: "json", Out: &buf})

	logger.Debug().Msg("hidden")
	component := logging.Component(logger, "renderer")
	component.Info().Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json entry, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "visible" || entry["component"] != "renderer" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestSetup_UnknownLevelFallsBackToWarn(t *testing.T) {
	logger := logging.Setup(logging.Options{Level: "loud", Format: "json", Out: &bytes.Buffer{}})
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level = %v, want warn", logger.GetLevel())
	}
}

func TestLevelForVerbosity(t *testing.T) {
	cases := map[int]string{0: "", 1: "info", 2: "debug", 5: "trace"}
	for verbosity, want := range cases {
		if got := logging.LevelForVerbosity(verbosity); got != want {
			t.Errorf("LevelForVerbosity(%d) = %q, want %q", verbosity, got, want)
		}
	}
}
