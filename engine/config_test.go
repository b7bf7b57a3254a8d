package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		750 * time.Millisecond,
		1000 * time.Millisecond,
		1250 * time.Millisecond,
		1500 * time.Millisecond,
	}, cfg.ISIJitter)
	assert.Equal(t, byte(1), cfg.TriggerCode(Face))
	assert.Equal(t, byte(2), cfg.TriggerCode(House))
	assert.Equal(t, 115200, cfg.BaudRate)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "255,0,0", want: Color{R: 255, A: 255}},
		{in: "1, 2, 3, 4", want: Color{R: 1, G: 2, B: 3, A: 4}},
		{in: "0,0,0,0", want: Color{}},
		{in: "256,0,0", wantErr: true},
		{in: "red", wantErr: true},
		{in: "1,2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n170.yaml")
	data := `
reps: 3
stim_duration: 800ms
isi_jitter: [400ms, 600ms]
fixation_change_color: "0,0,255"
eeg: true
trigger_port: /dev/ttyUSB0
face_trigger: 10
house_trigger: 20
monitor: lab
monitors:
  lab:
    width: 2560
    height: 1440
    refresh_hz: 120
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Reps)
	assert.Equal(t, 800*time.Millisecond, cfg.StimDuration)
	assert.Equal(t, []time.Duration{400 * time.Millisecond, 600 * time.Millisecond}, cfg.ISIJitter)
	assert.Equal(t, Color{B: 255, A: 255}, cfg.FixationChangeColor)
	assert.Equal(t, White, cfg.FixationColor, "unset fields keep defaults")
	assert.True(t, cfg.EEG)
	assert.Equal(t, "/dev/ttyUSB0", cfg.TriggerPort)
	assert.Equal(t, byte(20), cfg.TriggerCode(House))

	w, h, calibrated := cfg.ScreenSize()
	assert.True(t, calibrated)
	assert.Equal(t, 2560, w)
	assert.Equal(t, 1440, h)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bg_color: purple\n"), 0o644))
	assert.Error(t, cfg.LoadFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero reps", func(c *Config) { c.Reps = 0 }},
		{"negative fix changes", func(c *Config) { c.FixChanges = -1 }},
		{"empty jitter", func(c *Config) { c.ISIJitter = nil }},
		{"non-positive jitter", func(c *Config) { c.ISIJitter = []time.Duration{0} }},
		{"zero stim duration", func(c *Config) { c.StimDuration = 0 }},
		{"trigger too high", func(c *Config) { c.FaceTrigger = 128 }},
		{"trigger zero", func(c *Config) { c.HouseTrigger = 0 }},
		{"same triggers", func(c *Config) { c.HouseTrigger = c.FaceTrigger }},
		{"bad baud with eeg", func(c *Config) { c.EEG = true; c.BaudRate = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestScreenSize(t *testing.T) {
	cfg := DefaultConfig()

	w, h, calibrated := cfg.ScreenSize()
	assert.Equal(t, [2]int{1920, 1080}, [2]int{w, h})
	assert.False(t, calibrated, "no profile registered for the default monitor")

	cfg.SmallMonitor = true
	w, h, _ = cfg.ScreenSize()
	assert.Equal(t, [2]int{1200, 1000}, [2]int{w, h})
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), CacheFile)
	c, err := LoadCache(path)
	require.NoError(t, err, "missing cache is not an error")
	assert.Equal(t, Cache{}, c)

	require.NoError(t, Cache{SubjectID: 17, Experiment: "FaceHouse"}.Save(path))
	c, err = LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, Cache{SubjectID: 17, Experiment: "FaceHouse"}, c)
}

func TestLoadCacheCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), CacheFile)
	require.NoError(t, os.WriteFile(path, []byte("subject_id: [unterminated\n"), 0o644))

	c, err := LoadCache(path)
	assert.ErrorContains(t, err, "parse cache")
	assert.Equal(t, Cache{}, c)
}
