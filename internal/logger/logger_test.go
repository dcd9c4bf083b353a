package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{env: "prod", want: zapcore.InfoLevel},
		{env: "local", want: zapcore.DebugLevel},
		{env: "dev", level: "warn", want: zapcore.WarnLevel},
		{env: "prod", level: "error", want: zapcore.ErrorLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level %s should be disabled", tt.want-1)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext() returned nil without a logger")
	}

	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext() did not return the stored logger")
	}
}
