package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ppusim/internal/app"
)

var (
	configPath   string
	romPath      string
	frames       int
	revisionName string
	backendName  string
	dumpEvery    int
	outputDir    string
	snapshotPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulator and present or dump frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		applyRunFlags(cmd, config)
		if err := config.Validate(); err != nil {
			return err
		}

		// the --log flag wins over the config file
		if !cmd.Flags().Changed("log") {
			level, _ := config.LogLevel()
			logrus.SetLevel(level)
		}
		log := logrus.WithField("config", config.GetConfigPath())
		if config.IsLoaded() {
			log.Info("configuration loaded")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSession(ctx, config, log)
	},
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, config *app.Config) {
	flags := cmd.Flags()
	if flags.Changed("rom") {
		config.Run.ROM = romPath
	}
	if flags.Changed("frames") {
		config.Run.Frames = frames
	}
	if flags.Changed("revision") {
		config.Core.Revision = revisionName
	}
	if flags.Changed("backend") {
		config.Video.Backend = backendName
	}
	if flags.Changed("dump-every") {
		config.Video.DumpEvery = dumpEvery
	}
	if flags.Changed("output-dir") {
		config.Video.OutputDir = outputDir
	}
}

func runSession(ctx context.Context, config *app.Config, log *logrus.Entry) (err error) {
	session, err := app.NewSession(config, nil, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := session.Run(ctx); err != nil {
		return err
	}

	if snapshotPath == "" {
		return nil
	}
	snap, err := session.Snapshot()
	if err != nil {
		return err
	}
	if err := snap.Save(snapshotPath); err != nil {
		return err
	}
	log.WithField("path", snapshotPath).Info("snapshot saved")
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", app.GetDefaultConfigPath(), "Configuration file")
	runCmd.Flags().StringVarP(&romPath, "rom", "r", "", "iNES image supplying CHR data")
	runCmd.Flags().IntVarP(&frames, "frames", "n", 60, "Frames to run, 0 runs until the window closes")
	runCmd.Flags().StringVar(&revisionName, "revision", "", "Chip revision (see 'ppusim revisions')")
	runCmd.Flags().StringVar(&backendName, "backend", "headless", "Video backend (ebitengine, headless, terminal)")
	runCmd.Flags().IntVar(&dumpEvery, "dump-every", 0, "Write every Nth frame as PPM, 0 disables")
	runCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "./frames", "Directory for dumped frames")
	runCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Write a JSON state snapshot here when the run ends")
}
