package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env       string
		wantText  bool
		wantDebug bool
	}{
		{env: "local", wantText: true, wantDebug: true},
		{env: "dev", wantText: false, wantDebug: true},
		{env: "prod", wantText: false, wantDebug: false},
		{env: "staging", wantText: false, wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			log := setupLogger(tt.env)

			_, isText := log.Handler().(*slog.TextHandler)
			assert.Equal(t, tt.wantText, isText)
			assert.Equal(t, tt.wantDebug, log.Enabled(context.Background(), slog.LevelDebug))
			assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}
