package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/vnykmshr/wareflow/internal/testutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		verbose bool
		want    zapcore.Level
	}{
		{"console info", "info", "console", false, zapcore.InfoLevel},
		{"json warn", "warn", "json", false, zapcore.WarnLevel},
		{"verbose overrides", "error", "json", true, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format, tt.verbose)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, log.Level(), tt.want)
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", "console", false)
	testutil.AssertError(t, err)
}
