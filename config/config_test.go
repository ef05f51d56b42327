package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lifecaller/simulator/auth"
	"github.com/lifecaller/simulator/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "lifecaller.db", cfg.Database.Path)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "simulate", cfg.Policy.Capability)
	assert.False(t, cfg.Policy.EnforceAssignment)
	assert.Equal(t, simulation.DefaultLookupTimeout, cfg.Store.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIFECALLER_AUTH_SECRET", "s3cret")
	t.Setenv("LIFECALLER_SERVER_PORT", "9090")
	t.Setenv("LIFECALLER_REDIS_ADDR", "localhost:6379")
	t.Setenv("LIFECALLER_STORE_TIMEOUT", "750ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.Timeout)
	assert.NoError(t, cfg.RequireSecret())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
database:
  path: /tmp/sim.db
auth:
  secret: from-file
  roles:
    operador: [simulate]
    gestor: [simulate, supervise]
policy:
  enforce_assignment: true
`), 0o600))
	t.Setenv("LIFECALLER_AUTH_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/sim.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.Auth.Secret, "environment wins over file")

	roles := cfg.RoleMap()
	assert.Equal(t, []simulation.Capability{simulation.CapSimulate}, roles["operador"])
	assert.Empty(t, roles[auth.RoleCalculist], "a configured table replaces the defaults")

	policy := cfg.AccessPolicy()
	assert.Equal(t, simulation.CapSimulate, policy.Required)
	require.Len(t, policy.Rules, 1)
	assert.IsType(t, simulation.AssignmentRule{}, policy.Rules[0])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Server.Port = 70000
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Database.Path = ""
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Policy.Capability = ""
	assert.Error(t, bad.Validate())

	assert.Error(t, cfg.RequireSecret())
}

func TestRoleMap_Defaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, auth.DefaultRoles(), cfg.RoleMap())
	assert.Empty(t, cfg.AccessPolicy().Rules)
}
