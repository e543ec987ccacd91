package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saleskit-io/meetbot/internal/config"
	apperrors "github.com/saleskit-io/meetbot/internal/errors"
	"github.com/saleskit-io/meetbot/internal/ipc"
	"github.com/saleskit-io/meetbot/internal/logging"
	"github.com/saleskit-io/meetbot/internal/meeting"
	"github.com/saleskit-io/meetbot/internal/meeting/device"
	"github.com/saleskit-io/meetbot/internal/meeting/rtms"
	"github.com/saleskit-io/meetbot/internal/runner"
)

// runBot is the default command: join the configured meeting and stream
// until the session ends or the parent tells us to leave.
func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ipcToStdout {
		cfg.IPCToStdout = true
	}

	log, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		BotID:    cfg.BotID,
		ToFile:   cfg.LogToFile,
		FilePath: cfg.LogFilePath,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("meetbot starting", logging.Fields{"version": version})
	log.Info("configuration loaded", logging.Fields(cfg.Fields()))

	if cfg.ChunkDumpDir != "" {
		if err := os.MkdirAll(cfg.ChunkDumpDir, 0o755); err != nil {
			return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "create chunk dump directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	queue := runner.NewQueue(0, log)
	client := buildClient(cfg, queue, log)
	adapter := meeting.NewAdapter(client, queue, log)

	var pipe ipc.Sink
	if cfg.IPCToStdout {
		pipe = ipc.NewPipe(os.Stdout)
	} else {
		pipe = ipc.NewLogPipe(log)
	}

	commands := ipc.ReadCommands(os.Stdin, log)

	bot := runner.New(cfg, adapter, queue, pipe, log)
	return bot.Run(ctx, commands)
}

// buildClient picks the meeting provider. "none" maps to a nil client,
// which the adapter treats as fallback mode.
func buildClient(cfg *config.Config, sink meeting.EventSink, log *logging.Logger) meeting.Client {
	switch cfg.Provider {
	case "rtms":
		return rtms.New(rtms.Config{
			GatewayURL: cfg.GatewayURL,
			SDKKey:     cfg.SDKKey,
			SDKSecret:  cfg.SDKSecret,
			JWT:        cfg.SDKJWT,
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
			FrameMs:    cfg.FrameMs,
		}, sink, log)
	case "device":
		return device.New(device.Config{
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
			FrameMs:    cfg.FrameMs,
			DeviceHint: cfg.CaptureDevice,
		}, sink, log)
	default:
		return nil
	}
}
