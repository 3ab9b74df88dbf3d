package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/matching"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLOVER_DB_HOST", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseHost)
	assert.Equal(t, "5432", cfg.DatabasePort)
	assert.Equal(t, matching.ProfileStandard, cfg.MatchProfile)
	assert.Equal(t, 5*time.Minute, cfg.ImportLockTTL)

	mc, err := cfg.Matching()
	require.NoError(t, err)
	assert.Equal(t, 75.0, mc.Profile.FuzzyThreshold)
	assert.Equal(t, 500, mc.MaxCandidates)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "clover.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_host: from-file
db_name: players
match_profile: strict
match_weights:
  phone: 15
kafka_brokers:
  - k1:9092
  - k2:9092
import_lock_ttl: 90s
`), 0o600))
	t.Setenv("CLOVER_CONFIG", path)
	t.Setenv("CLOVER_DB_HOST", "from-env")
	t.Setenv("CLOVER_MATCH_THRESHOLD", "95")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DatabaseHost)
	assert.Equal(t, "players", cfg.DatabaseName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.ImportLockTTL)

	mc, err := cfg.Matching()
	require.NoError(t, err)
	assert.Equal(t, matching.ProfileStrict, mc.Profile.Name)
	assert.Equal(t, 95.0, mc.Profile.FuzzyThreshold)
	assert.Equal(t, 15.0, mc.Profile.Weights["phone"])
	assert.False(t, mc.Profile.ExactMatch)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CLOVER_DB_HOST=dotenv-host\nCLOVER_DB_PORT=6543\n"), 0o600))
	t.Setenv("CLOVER_DB_PORT", "7777")
	t.Cleanup(func() { os.Unsetenv("CLOVER_DB_HOST") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-host", cfg.DatabaseHost)
	assert.Equal(t, "7777", cfg.DatabasePort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "MissingHost", mutate: func(c *Config) { c.DatabaseHost = "" }, wantErr: "db_host"},
		{name: "UnknownProfile", mutate: func(c *Config) { c.MatchProfile = "loose" }, wantErr: "unknown scoring profile"},
		{name: "BadThreshold", mutate: func(c *Config) { c.MatchThreshold = 150 }, wantErr: "fuzzy threshold"},
		{name: "NegativeWeight", mutate: func(c *Config) { c.MatchWeights = map[string]float64{"email": -1} }, wantErr: "invalid matching settings"},
		{name: "KafkaWithoutBrokers", mutate: func(c *Config) { c.KafkaEnabled = true; c.KafkaBrokers = nil }, wantErr: "kafka_brokers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.DatabaseHost = "postgres"
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
