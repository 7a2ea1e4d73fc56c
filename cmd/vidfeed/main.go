// Package main provides the CLI entry point for vidfeed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vidfeed/pkg/adapters/filesink"
	"github.com/user/vidfeed/pkg/adapters/ggoverlay"
	"github.com/user/vidfeed/pkg/adapters/imgseq"
	"github.com/user/vidfeed/pkg/adapters/logger"
	"github.com/user/vidfeed/pkg/adapters/memsource"
	"github.com/user/vidfeed/pkg/adapters/mjpegcam"
	"github.com/user/vidfeed/pkg/adapters/mp4source"
	"github.com/user/vidfeed/pkg/adapters/nullsink"
	"github.com/user/vidfeed/pkg/adapters/osfilesystem"
	"github.com/user/vidfeed/pkg/adapters/resize"
	"github.com/user/vidfeed/pkg/config"
	"github.com/user/vidfeed/pkg/playback"
	"github.com/user/vidfeed/pkg/ports"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:  "vidfeed",
		Usage: l10n.T("Play video sources as a deterministic, seekable frame feed"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"C"},
				Usage:   l10n.T("Path to a YAML configuration file"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   l10n.T("Log level (debug, info, warn, error, quiet)"),
			},
		},
		Commands: []*cli.Command{
			playCommand(),
			probeCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a source and deliver its frames to a sink"),
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "fps",
				Usage: l10n.T("Override the source frame rate"),
			},
			&cli.StringFlag{
				Name:  "backlog",
				Usage: l10n.T("Backlog policy (deliver_all, drop_to_latest)"),
			},
			&cli.BoolFlag{
				Name:  "loop",
				Usage: l10n.T("Restart from the first frame at end of stream"),
			},
			&cli.IntFlag{
				Name:    "width",
				Aliases: []string{"W"},
				Usage:   l10n.T("Resize frames to this width"),
			},
			&cli.IntFlag{
				Name:    "height",
				Aliases: []string{"H"},
				Usage:   l10n.T("Resize frames to this height"),
			},
			&cli.BoolFlag{
				Name:  "stamp",
				Usage: l10n.T("Stamp frame index and timestamp onto the picture"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   l10n.T("Directory to write frames into"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   l10n.T("Frame file format (png, jpeg, raw)"),
			},
			&cli.BoolFlag{
				Name:  "discard",
				Usage: l10n.T("Discard frames instead of writing them (pacing only)"),
			},
			&cli.DurationFlag{
				Name:  "seek",
				Usage: l10n.T("Seek to this timestamp before delivering frames"),
			},
		},
		Action: runPlay,
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Open a source and print its media properties"),
		ArgsUsage: "<source>",
		Action:    runProbe,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Println(l10n.F("vidfeed version %s", version))
			return nil
		},
	}
}

// loadConfig merges defaults, an optional config file, and flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.Args().Len() > 0 {
		cfg.Source = c.Args().First()
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Float64("fps")
	}
	if c.IsSet("backlog") {
		cfg.Backlog = c.String("backlog")
	}
	if c.IsSet("loop") {
		cfg.Loop = c.Bool("loop")
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.IsSet("stamp") {
		cfg.Overlay.Index = true
		cfg.Overlay.Timestamp = true
	}
	if c.IsSet("output") {
		cfg.OutputDir = c.String("output")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if cfg.Source == "" {
		return cfg, fmt.Errorf("no source given; pass a file, directory, or camera URL")
	}
	return cfg, cfg.Validate()
}

// openerFor maps a source string to the matching adapter. Directories play
// as image sequences, http(s) URLs are live cameras, "synthetic" generates
// frames in memory, everything else is treated as a fragmented MP4 file.
func openerFor(cfg config.Config, log ports.Logger) (ports.MediaOpener, error) {
	src := cfg.Source
	if src == "synthetic" {
		return memsource.New(memsource.Config{
			Count:    300,
			Interval: intervalFor(cfg.FPS),
		}), nil
	}
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return imgseq.New(src, cfg.FPS, log), nil
	}
	return mp4source.New(src, log), nil
}

func intervalFor(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func isLiveSource(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func buildProcessors(cfg config.Config) (ports.ProcessorChain, error) {
	var chain ports.ProcessorChain
	if cfg.Width > 0 && cfg.Height > 0 {
		scaler, err := resize.New(cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		chain = append(chain, scaler)
	}
	if cfg.Overlay.Index || cfg.Overlay.Timestamp {
		chain = append(chain, ggoverlay.New(ggoverlay.Options{
			ShowIndex:     cfg.Overlay.Index,
			ShowTimestamp: cfg.Overlay.Timestamp,
		}))
	}
	return chain, nil
}

func buildSink(c *cli.Context, cfg config.Config) (ports.FrameSink, error) {
	if c.Bool("discard") {
		return nullsink.New(), nil
	}
	format, err := filesink.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return filesink.New(cfg.OutputDir, format, osfilesystem.New()), nil
}

func runPlay(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))

	processors, err := buildProcessors(cfg)
	if err != nil {
		return err
	}
	sink, err := buildSink(c, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if isLiveSource(cfg.Source) {
		return playLive(ctx, c, cfg, log, processors, sink)
	}
	return playRecorded(ctx, c, cfg, log, processors, sink)
}

// playRecorded paces a file-backed source through the engine runner.
func playRecorded(ctx context.Context, c *cli.Context, cfg config.Config,
	log ports.Logger, processors ports.ProcessorChain, sink ports.FrameSink) error {

	opener, err := openerFor(cfg, log)
	if err != nil {
		return err
	}
	opts, err := cfg.PlaybackOptions()
	if err != nil {
		return err
	}
	opts.Logger = log

	runner := playback.NewRunner(playback.New(opener, opts), 0)
	if err := runner.Start(); err != nil {
		return err
	}
	defer runner.Stop()

	if target := c.Duration("seek"); target > 0 {
		seekCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := runner.Seek(seekCtx, target)
		cancel()
		if err != nil {
			return err
		}
	}

	delivered := 0
	start := time.Now()
	for {
		ev, err := runner.Next(ctx)
		if err != nil {
			log.Info("interrupted after %d frames", delivered)
			return nil
		}

		switch ev.Kind {
		case ports.EventFrame:
			frame, err := processors.Process(ev.Frame)
			if err != nil {
				return err
			}
			if err := sink.WriteFrame(frame); err != nil {
				return err
			}
			delivered++
		case ports.EventEndOfStream:
			log.Info("delivered %d frames in %s (%d dropped)",
				delivered, time.Since(start).Round(time.Millisecond), runner.Dropped())
			return nil
		case ports.EventError:
			return ev.Err
		}
	}
}

// playLive polls an MJPEG camera until interrupted.
func playLive(ctx context.Context, c *cli.Context, cfg config.Config,
	log ports.Logger, processors ports.ProcessorChain, sink ports.FrameSink) error {

	if c.Duration("seek") > 0 {
		return fmt.Errorf("cannot seek a live camera: %w", ports.ErrInvalidTransition)
	}

	cam := mjpegcam.New(cfg.Source, mjpegcam.Options{
		Timeout:       cfg.Camera.Timeout(),
		RetryAttempts: cfg.Camera.RetryAttempts,
		RetryDelay:    cfg.Camera.RetryDelay(),
		Logger:        log,
	})
	if err := cam.Start(); err != nil {
		return err
	}
	defer cam.Stop()

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("interrupted after %d frames", delivered)
			return nil
		default:
		}

		ev := cam.Poll()
		switch ev.Kind {
		case ports.EventFrame:
			frame, err := processors.Process(ev.Frame)
			if err != nil {
				return err
			}
			if err := sink.WriteFrame(frame); err != nil {
				return err
			}
			delivered++
		case ports.EventEndOfStream:
			log.Info("stream ended after %d frames", delivered)
			return nil
		case ports.EventError:
			return ev.Err
		case ports.EventNotDue:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func runProbe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))

	if isLiveSource(cfg.Source) {
		return fmt.Errorf("probe expects a recorded source, got camera URL %s", cfg.Source)
	}

	opener, err := openerFor(cfg, log)
	if err != nil {
		return err
	}
	src, err := opener.OpenMedia()
	if err != nil {
		return err
	}
	defer src.Close()

	info := src.Info()
	fmt.Println(l10n.F("Source:   %s", cfg.Source))
	fmt.Println(l10n.F("Codec:    %s", info.Codec))
	fmt.Println(l10n.F("Size:     %dx%d", info.Width, info.Height))
	fmt.Println(l10n.F("Frames:   %d", info.FrameCount))
	fmt.Println(l10n.F("Interval: %s", info.FrameInterval))
	fmt.Println(l10n.F("Duration: %s", info.Duration.Round(time.Millisecond)))
	return nil
}
