package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/agentsim/internal/fsutil"
)

func TestDefaultSimConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultSimConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10.0, cfg.GetPlannerHz())
	assert.Equal(t, 30.0, cfg.GetControllerHz())
	assert.Equal(t, 50.0, cfg.GetEstimatorHz())
	assert.Equal(t, 100.0, cfg.GetDynamicsHz())
	assert.Equal(t, 100.0, cfg.GetSensorPassHz())
	assert.False(t, cfg.GetAsyncPlanning())
	assert.Equal(t, 10*time.Millisecond, cfg.GetFrameInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.GetMaxFrameDelta())
	assert.Positive(t, cfg.GetWorkers())
}

func TestEmptySimConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	cfg := EmptySimConfig()
	assert.Equal(t, DefaultPlannerHz, cfg.GetPlannerHz())
	assert.Equal(t, DefaultDynamicsHz, cfg.GetDynamicsHz())
	assert.Equal(t, 256, cfg.GetDiagnosticsCapacity())
	assert.False(t, cfg.GetControlFromEstimate())
}

func TestLoadSimConfig(t *testing.T) {
	t.Parallel()
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/etc/sim.json", []byte(`{
  "planner_hz": 5,
  "dynamics_hz": 200,
  "async_planning": true,
  "frame_interval": "5ms"
}`))
	mfs.WriteFile("/etc/sim.yaml", []byte("estimator_hz: 25\ncontrol_from_estimate: true\nworkers: 2\n"))
	mfs.WriteFile("/etc/empty.yml", []byte(""))
	mfs.WriteFile("/etc/typo.json", []byte(`{"planer_hz": 5}`))
	mfs.WriteFile("/etc/zero.yaml", []byte("controller_hz: 0\n"))
	mfs.WriteFile("/etc/bad.json", []byte(`{"planner_hz": "fast"`))
	mfs.WriteFile("/etc/sim.toml", []byte(``))

	t.Run("json overrides", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadSimConfig(mfs, "/etc/sim.json")
		require.NoError(t, err)
		assert.Equal(t, 5.0, cfg.GetPlannerHz())
		assert.Equal(t, 200.0, cfg.GetDynamicsHz())
		assert.Equal(t, DefaultControllerHz, cfg.GetControllerHz())
		assert.True(t, cfg.GetAsyncPlanning())
		assert.Equal(t, 5*time.Millisecond, cfg.GetFrameInterval())
	})

	t.Run("yaml overrides", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadSimConfig(mfs, "/etc/sim.yaml")
		require.NoError(t, err)
		assert.Equal(t, 25.0, cfg.GetEstimatorHz())
		assert.True(t, cfg.GetControlFromEstimate())
		assert.Equal(t, 2, cfg.GetWorkers())
	})

	t.Run("empty yaml is all defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadSimConfig(mfs, "/etc/empty.yml")
		require.NoError(t, err)
		assert.Equal(t, DefaultEstimatorHz, cfg.GetEstimatorHz())
	})

	for _, tc := range []struct{ name, path, want string }{
		{"unknown field", "/etc/typo.json", "planer_hz"},
		{"non-positive rate", "/etc/zero.yaml", "controller_hz must be positive"},
		{"malformed json", "/etc/bad.json", "failed to parse config JSON"},
		{"unsupported extension", "/etc/sim.toml", "extensions"},
		{"missing file", "/etc/none.json", "failed to load config file"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadSimConfig(mfs, tc.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     *SimConfig
		wantErr bool
	}{
		{"defaults", DefaultSimConfig(), false},
		{"negative workers", &SimConfig{Workers: ptrInt(-1)}, true},
		{"bad duration", &SimConfig{FrameInterval: ptrString("soon")}, true},
		{"zero duration", &SimConfig{MaxFrameDelta: ptrString("0s")}, true},
		{"negative dynamics rate", &SimConfig{DynamicsHz: ptrFloat64(-100)}, true},
		{"negative diagnostics capacity", &SimConfig{DiagnosticsCapacity: ptrInt(-3)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
