package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env, level string
		want       zapcore.Level
		wantErr    bool
	}{
		{"production", "", zapcore.InfoLevel, false},
		{"production", "warn", zapcore.WarnLevel, false},
		{"development", "", zapcore.DebugLevel, false},
		{"development", "error", zapcore.ErrorLevel, false},
		{"production", "loud", 0, true},
	}
	for _, tt := range tests {
		logger, err := New(tt.env, tt.level)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s/%s: expected error", tt.env, tt.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s/%s: %v", tt.env, tt.level, err)
		}
		if !logger.Core().Enabled(tt.want) || (tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1)) {
			t.Fatalf("%s/%s: unexpected level", tt.env, tt.level)
		}
	}
}
