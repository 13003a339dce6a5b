package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppusim/internal/app"
	"ppusim/internal/ppu"
	"ppusim/internal/ppusim"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func TestPrintRevisions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRevisions(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, int(ppu.RevisionMax)+1)
	assert.True(t, strings.HasPrefix(lines[0], "REVISION"))

	fields := strings.Fields(lines[1+int(ppu.RP2C02G)])
	assert.Equal(t, []string{"RP2C02G", "NTSC", "4", "262", "241", "yes", "-", "-", "-", "yes"}, fields)

	fields = strings.Fields(lines[1+int(ppu.RC2C05_02)])
	assert.Equal(t, []string{"RC2C05-02", "NTSC", "4", "262", "241", "-", "yes", "yes", "$3D", "-"}, fields)

	fields = strings.Fields(lines[1+int(ppu.UMC_UA6538)])
	assert.Equal(t, []string{"UMC-UA6538", "Dendy", "5", "312", "291", "-", "-", "-", "-", "-"}, fields)
}

func TestStress(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		cycles  int
		dots    int
	}{
		{"construct only", 4, 50, 0},
		{"with stepping", 2, 3, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc, err := stress(context.Background(), nil, tt.workers, tt.cycles, tt.dots)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.workers*tt.cycles), alloc.Allocated())
			assert.Equal(t, alloc.Allocated(), alloc.Freed())
		})
	}
}

func TestStressSurfacesExhaustion(t *testing.T) {
	_, err := stress(context.Background(), ppusim.NewLimitedAllocator(nil, 0), 2, 5, 0)
	assert.ErrorIs(t, err, ppusim.ErrResourceExhausted)
}

func TestStressCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	alloc, err := stress(ctx, nil, 2, 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, alloc.Allocated())
}

func TestNewBaseAllocator(t *testing.T) {
	a, err := newBaseAllocator("heap")
	require.NoError(t, err)
	assert.Equal(t, ppusim.HeapAllocator{}, a)

	_, err = newBaseAllocator("arena")
	assert.Error(t, err)
}

func TestSetLogLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	require.NoError(t, setLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.Error(t, setLogLevel("chatty"))
}

func TestApplyRunFlags(t *testing.T) {
	config := app.NewConfig()
	require.NoError(t, runCmd.Flags().Set("frames", "3"))
	require.NoError(t, runCmd.Flags().Set("revision", "RP2C07-0"))
	t.Cleanup(func() {
		runCmd.Flags().Lookup("frames").Changed = false
		runCmd.Flags().Lookup("revision").Changed = false
	})

	applyRunFlags(runCmd, config)
	assert.Equal(t, 3, config.Run.Frames)
	assert.Equal(t, "RP2C07-0", config.Core.Revision)
	assert.Equal(t, "headless", config.Video.Backend, "unset flags leave the config alone")
	assert.Empty(t, config.Run.ROM)
}

func TestRunSession(t *testing.T) {
	dir := t.TempDir()
	config := app.NewConfig()
	config.Run.Frames = 2
	config.Video.OutputDir = dir
	config.Video.DumpEvery = 2

	snapshotPath = filepath.Join(dir, "state.json")
	t.Cleanup(func() { snapshotPath = "" })

	require.NoError(t, runSession(context.Background(), config, logrus.NewEntry(logrus.StandardLogger())))
	assert.FileExists(t, filepath.Join(dir, "frame_00002.ppm"))

	snap, err := app.LoadSnapshot(snapshotPath)
	require.NoError(t, err)
	assert.Equal(t, "RP2C02G", snap.Revision)
	assert.GreaterOrEqual(t, snap.Frames, uint64(2))
}
