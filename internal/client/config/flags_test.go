package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	base := Config{ServerURL: "http://default", DatabasePath: "default.db", OnlineCheckInterval: 1500 * time.Millisecond, SyncInterval: time.Minute}

	tests := []struct {
		name     string
		args     []string
		expected Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://127.0.0.1:9090", "-d", "/tmp/p.db", "-i", "10", "-s", "300"},
			expected: Config{ServerURL: "http://127.0.0.1:9090", DatabasePath: "/tmp/p.db",
				OnlineCheckInterval: 10 * time.Second, SyncInterval: 5 * time.Minute},
		},
		{
			name:     "unset intervals keep sub-second values",
			args:     []string{"-a", "http://x"},
			expected: Config{ServerURL: "http://x", DatabasePath: "default.db", OnlineCheckInterval: 1500 * time.Millisecond, SyncInterval: time.Minute},
		},
		{name: "non-numeric interval", args: []string{"-i", "abc"}, wantErr: true},
		{name: "zero interval", args: []string{"-s", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			err := parseFlags(&cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
