package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COC_HOME", dir)
	t.Setenv("COC_LOG_LEVEL", "")
	t.Setenv("COC_POLICY_PROFILE", "")
	t.Setenv("COC_API_HOST", "")
	t.Setenv("COC_API_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Home)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, contracts.PolicyDefault, cfg.PolicyProfile)
	require.Equal(t, "127.0.0.1", cfg.APIHost)
	require.Equal(t, "8420", cfg.APIPort)
}

func TestLoad_RejectsInvalidPolicyProfile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COC_HOME", dir)
	t.Setenv("COC_POLICY_PROFILE", "chaotic")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_PolicyYamlOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COC_HOME", dir)
	t.Setenv("COC_POLICY_PROFILE", "lenient")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.yaml"), []byte("policy_profile: strict\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, contracts.PolicyStrict, cfg.PolicyProfile)
}

func TestDirHelpers(t *testing.T) {
	cfg := &Config{Home: "/home/coc"}
	require.Equal(t, "/home/coc/traces", cfg.TracesDir())
	require.Equal(t, "/home/coc/artifacts", cfg.ArtifactsDir())
	require.Equal(t, "/home/coc/keys", cfg.KeysDir())
}
