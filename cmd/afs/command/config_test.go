package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    *Config
		wantErr bool
	}{
		{
			name: "full",
			content: "log_level: debug\nlog_format: json\nencoding: Shift_JIS\n" +
				"timezone: UTC\nbatch_workers: 4\ndirect_writes: true\n",
			want: &Config{
				LogLevel:     "debug",
				LogFormat:    "json",
				Encoding:     "Shift_JIS",
				Timezone:     "UTC",
				BatchWorkers: 4,
				DirectWrites: true,
			},
		},
		{
			name:    "partial",
			content: "encoding: EUC-JP\n",
			want:    &Config{Encoding: "EUC-JP"},
		},
		{
			name:    "unknown key",
			content: "workers: 4\n",
			wantErr: true,
		},
		{
			name:    "bad timezone",
			content: "timezone: Nowhere/Special\n",
			wantErr: true,
		},
		{
			name:    "negative workers",
			content: "batch_workers: -1\n",
			wantErr: true,
		},
		{
			name:    "not yaml",
			content: "log_level: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "afs.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			got, err := LoadConfig(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	_, err := newLogger("debug", "json")
	require.NoError(t, err)
	_, err = newLogger("loud", "text")
	require.Error(t, err)
	_, err = newLogger("info", "xml")
	require.Error(t, err)
}

func TestLoadConfig_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "afs.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, got)
}
