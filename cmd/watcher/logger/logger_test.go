package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/cmd/watcher/config"
)

func TestNew_LogLevels(t *testing.T) {
	tests := []struct {
		logLevel string
		want     zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		logger := New(&config.Config{LogLevel: tt.logLevel})
		if got := logger.GetLevel(); got != tt.want {
			t.Errorf("level for %q = %v, want %v", tt.logLevel, got, tt.want)
		}
	}
}

func TestNewWithWriter_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{LogFormat: "json", LogLevel: "info"}, &buf)
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"service":"watcher"`) {
		t.Errorf("output %q missing service field", buf.String())
	}
}
