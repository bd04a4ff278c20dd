/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cachebatcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachebatcher/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfgData   string
		keyPrefix string
		want      *Config
		wantErr   string
	}{
		{
			name:    "default",
			cfgData: ``,
			want:    NewDefaultConfig(),
		},
		{
			name: "custom values",
			cfgData: `
cacheBatcher:
  maxParallelLookups: 8
  maxQueueSize: 500
`,
			want: &Config{MaxParallelLookups: 8, MaxQueueSize: 500, keyPrefix: "cacheBatcher"},
		},
		{
			name: "custom key prefix",
			cfgData: `
lookups:
  maxParallelLookups: 2
`,
			keyPrefix: "lookups",
			want:      &Config{MaxParallelLookups: 2, MaxQueueSize: DefaultMaxQueueSize, keyPrefix: "lookups"},
		},
		{
			name: "zero parallelism",
			cfgData: `
cacheBatcher:
  maxParallelLookups: 0
`,
			wantErr: "cacheBatcher.maxParallelLookups: should be >= 1",
		},
		{
			name: "invalid queue size",
			cfgData: `
cacheBatcher:
  maxQueueSize: -1
`,
			wantErr: "cacheBatcher.maxQueueSize: should be >= 1",
		},
		{
			name: "not a number",
			cfgData: `
cacheBatcher:
  maxQueueSize: many
`,
			wantErr: "cacheBatcher.maxQueueSize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []ConfigOption
			if tt.keyPrefix != "" {
				opts = append(opts, WithKeyPrefix(tt.keyPrefix))
			}
			cfg := NewConfig(opts...)
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg)
		})
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxParallelLookups = 3
	b, err := NewWithConfig(newPrepopulatedLRU(t), cfg, Opts{MaxParallelLookups: 100})
	require.NoError(t, err)
	require.Equal(t, "Batcher(cache=LRU,parallelism=3,max=10000)", b.Name())
}
