package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     LogConfig
		level   zerolog.Level
		wantErr bool
	}{
		{
			name:  "stdout and file",
			cfg:   LogConfig{Enabled: true, Level: "debug", Output: "stdout," + filepath.Join(dir, "tmp", "test.log")},
			level: zerolog.DebugLevel,
		},
		{
			name:  "single file",
			cfg:   LogConfig{Enabled: true, Level: "warn", Output: filepath.Join(dir, "warn.log")},
			level: zerolog.WarnLevel,
		},
		{
			name:  "disabled",
			cfg:   LogConfig{Enabled: false, Level: "not-a-level"},
			level: zerolog.TraceLevel,
		},
		{
			name:    "bad level",
			cfg:     LogConfig{Enabled: true, Level: "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, logger.GetLevel())

			// log some info
			logger.Warn().Msg("Test warn")
		})
	}

	data, err := os.ReadFile(filepath.Join(dir, "warn.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Test warn")
}
