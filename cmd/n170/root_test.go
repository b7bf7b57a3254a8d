package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n170/engine"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestLoadConfigLayering(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, cfgPath, "reps: 5\ntrigger_port: /dev/from-file\nsmall_monitor: true\n")

	tests := []struct {
		name      string
		env       string
		args      []string
		wantPort  string
		wantReps  int
		wantSmall bool
		wantErr   bool
	}{
		{name: "file over defaults", wantPort: "/dev/from-file", wantReps: 5, wantSmall: true},
		{name: "env over file", env: "/dev/from-env", wantPort: "/dev/from-env", wantReps: 5, wantSmall: true},
		{name: "flag over env", env: "/dev/from-env", args: []string{"--port", "/dev/from-flag"}, wantPort: "/dev/from-flag", wantReps: 5, wantSmall: true},
		{name: "set flag over file", args: []string{"--reps", "3", "--small=false"}, wantPort: "/dev/from-file", wantReps: 3},
		{name: "zero reps rejected", args: []string{"--reps", "0"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("N170_TRIGGER_PORT", tt.env)
			opts := &options{configFile: cfgPath}
			cmd := newRunCmd(opts)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, err := loadConfig(cmd, opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.TriggerPort)
			assert.Equal(t, tt.wantReps, cfg.Reps)
			assert.Equal(t, tt.wantSmall, cfg.SmallMonitor)
		})
	}
}

func TestLoadConfigDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("N170_TRIGGER_PORT", "")

	opts := &options{}
	cmd := newRunCmd(opts)
	require.NoError(t, cmd.ParseFlags(nil))
	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig().Reps, cfg.Reps, "no n170.yaml: defaults")

	writeFile(t, filepath.Join(dir, defaultConfigFile), "reps: 4\n")
	cfg, err = loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Reps)
}

func TestLoadConfigBadFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, cfgPath, "fixation_color: purple\n")

	opts := &options{configFile: cfgPath}
	cmd := newRunCmd(opts)
	require.NoError(t, cmd.ParseFlags(nil))
	_, err := loadConfig(cmd, opts)
	assert.Error(t, err)
}

func TestTrialsCommandWritesReplayableTable(t *testing.T) {
	root := t.TempDir()
	faceDir := filepath.Join(root, "Faces")
	houseDir := filepath.Join(root, "Houses")
	for _, name := range []string{"f1.jpg", "f2.jpg", "f3.jpeg"} {
		writeFile(t, filepath.Join(faceDir, name), "x")
	}
	for _, name := range []string{"h1.jpg", "h2.JPG"} {
		writeFile(t, filepath.Join(houseDir, name), "x")
	}
	cfgPath := filepath.Join(root, "n170.yaml")
	writeFile(t, cfgPath, "face_dir: "+faceDir+"\nhouse_dir: "+houseDir+"\n")
	out := filepath.Join(root, "trials.csv")

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"trials", "--config", cfgPath, "--seed", "5", "-o", out})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "10 trials (6 face, 4 house), 4 fixation changes")

	cfg := engine.DefaultConfig()
	require.NoError(t, cfg.LoadFile(cfgPath))
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	plan, err := engine.ReadTrialTable(f, cfg)
	require.NoError(t, err)
	assert.Len(t, plan.Trials, 10)
	assert.Equal(t, 6, plan.Count(engine.Face))
	assert.Len(t, plan.FixChanges, 4)
}

func TestTrialsCommandSeedIsReproducible(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Faces", "f1.jpg"), "x")
	writeFile(t, filepath.Join(root, "Faces", "f2.jpg"), "x")
	writeFile(t, filepath.Join(root, "Houses", "h1.jpg"), "x")
	cfgPath := filepath.Join(root, "n170.yaml")
	writeFile(t, cfgPath, "face_dir: "+filepath.Join(root, "Faces")+"\nhouse_dir: "+filepath.Join(root, "Houses")+"\nfix_changes: 2\n")

	table := func() string {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"trials", "--config", cfgPath, "--seed", "42"})
		require.NoError(t, cmd.Execute())
		return out.String()
	}
	assert.Equal(t, table(), table())
}
