package arbor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/matchers"
)

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "arbor.yaml", `
strategy: gumtree_stable
min_height: 3
sim_threshold: 0.4
similarity: dice
emit_reorder_moves: false
adaptive_threshold: true
optimal_size: 40
parallelism: 2
languages:
  .gox: go
`)
	fc, err := LoadConfig(path)
	require.NoError(t, err)

	cfg, err := fc.Config()
	require.NoError(t, err)
	assert.Equal(t, GumtreeStable, cfg.Strategy())
	assert.Equal(t, 3, cfg.MinHeight)
	assert.InDelta(t, 0.4, cfg.SimThreshold, 1e-9)
	assert.Equal(t, matchers.Dice, cfg.Similarity)
	assert.False(t, cfg.EmitReorderMoves)
	assert.True(t, cfg.AdaptiveThreshold)
	assert.Equal(t, 40, cfg.OptimalSize)
	assert.Equal(t, DefaultConfig().SizeThreshold, cfg.SizeThreshold)

	opts, err := fc.Options()
	require.NoError(t, err)
	e := newTestEngine(t, opts...)
	assert.Equal(t, GumtreeStable, e.Config().Strategy())
	assert.Equal(t, 2, e.parallelism)
	assert.Equal(t, "go", e.languages[".gox"])
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	fc, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg, err := fc.Config()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MinHeight, cfg.MinHeight)
	assert.True(t, cfg.EmitReorderMoves)
}

func TestLoadConfig_ZeroThresholdIsKept(t *testing.T) {
	path := writeFile(t, t.TempDir(), "arbor.yaml", "strategy: gumtree_hybrid\nsize_threshold: 0\n")
	fc, err := LoadConfig(path)
	require.NoError(t, err)
	cfg, err := fc.Config()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.SizeThreshold)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown strategy", "strategy: myers\n"},
		{"unknown similarity", "similarity: cosine\n"},
		{"threshold out of range", "sim_threshold: 1.5\n"},
		{"malformed yaml", "strategy: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, dir, tt.name+".yaml", tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ARBOR_STRATEGY", "lexical")
	t.Setenv("ARBOR_PARALLELISM", "7")
	path := writeFile(t, t.TempDir(), "arbor.yaml", "strategy: gumtree\n")

	fc, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "lexical", fc.Strategy)
	assert.Equal(t, 7, fc.Parallelism)
}

func TestLoadConfig_MalformedEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "arbor.yaml", "strategy: gumtree\n")
	for _, v := range []string{"many", "0", "-2"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("ARBOR_PARALLELISM", v)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ARBOR_PARALLELISM")
		})
	}

	t.Setenv("ARBOR_PARALLELISM", "")
	t.Setenv("ARBOR_STRATEGY", "myers")
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
