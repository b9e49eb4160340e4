package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{FormatJSON, "", zapcore.InfoLevel, false},
		{"", "warn", zapcore.WarnLevel, false},
		{FormatConsole, "", zapcore.DebugLevel, false},
		{FormatConsole, "error", zapcore.ErrorLevel, false},
		{"xml", "", 0, true},
		{FormatJSON, "loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.level, func(t *testing.T) {
			l, err := New(tt.format, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %v should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %v should be disabled", tt.want-1)
			}
		})
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should never return nil")
	}

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext did not return the stored logger")
	}
}
