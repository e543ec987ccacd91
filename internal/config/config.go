// Package config handles bot process configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/saleskit-io/meetbot/internal/errors"
)

// Config is an immutable snapshot of the bot's operating parameters, read
// once from the environment at process start and passed by reference from
// there on.
type Config struct {
	SDKKey          string `env:"SDK_KEY"`
	SDKSecret       string `env:"SDK_SECRET"`
	SDKJWT          string `env:"SDK_JWT"`
	MeetingID       string `env:"MEETING_ID"`
	MeetingPassword string `env:"MEETING_PASSWORD"`

	BotName string `env:"BOT_NAME" envDefault:"Meeting Notetaker"`
	BotID   string `env:"BOT_ID"`

	// Provider selects the meeting client implementation; "none" forces the
	// adapter's fallback mode.
	Provider      string `env:"MEETING_PROVIDER" envDefault:"rtms"`
	GatewayURL    string `env:"GATEWAY_URL"`
	CaptureDevice string `env:"CAPTURE_DEVICE"`

	SampleRate   int `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	Channels     int `env:"AUDIO_CHANNELS" envDefault:"1"`
	FrameMs      int `env:"AUDIO_FRAME_MS" envDefault:"100"`
	ChunkMs      int `env:"AUDIO_CHUNK_MS" envDefault:"5000"`
	MaxSilenceMs int `env:"AUDIO_MAX_SILENCE_MS" envDefault:"2000"`
	VADThreshold int `env:"VAD_THRESHOLD" envDefault:"500"`

	MaxJoinRetries   int  `env:"MAX_JOIN_RETRIES" envDefault:"3"`
	JoinRetryDelayMs int  `env:"JOIN_RETRY_DELAY_MS" envDefault:"5000"`
	ReconnectOnError bool `env:"RECONNECT_ON_ERROR" envDefault:"true"`
	HealthIntervalMs int  `env:"HEALTH_CHECK_INTERVAL_MS" envDefault:"30000"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogToFile   bool   `env:"LOG_TO_FILE" envDefault:"false"`
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"meetbot.log"`

	// ChunkDumpDir, when set, writes every emitted chunk as a WAV file for
	// offline inspection.
	ChunkDumpDir string `env:"CHUNK_DUMP_DIR"`

	// IPCToStdout is set by the parent process when it owns the bot's stdout
	// as a message channel; without it, outbound messages degrade to debug
	// log lines.
	IPCToStdout bool `env:"MEETBOT_IPC" envDefault:"false"`
}

// Load parses the environment, fills generated defaults, and validates.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "parse environment")
	}
	if cfg.BotID == "" {
		cfg.BotID = "bot-" + strings.Split(uuid.NewString(), "-")[0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate collects every problem with the snapshot into a single error.
func (c *Config) Validate() error {
	var problems []string

	switch c.Provider {
	case "rtms", "device", "none":
	default:
		problems = append(problems, fmt.Sprintf("unknown MEETING_PROVIDER %q", c.Provider))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown LOG_LEVEL %q", c.LogLevel))
	}
	if c.SampleRate <= 0 {
		problems = append(problems, "AUDIO_SAMPLE_RATE must be positive")
	}
	if c.Channels <= 0 {
		problems = append(problems, "AUDIO_CHANNELS must be positive")
	}
	if c.FrameMs <= 0 {
		problems = append(problems, "AUDIO_FRAME_MS must be positive")
	}
	if c.ChunkMs <= 0 {
		problems = append(problems, "AUDIO_CHUNK_MS must be positive")
	}
	if c.MaxSilenceMs <= 0 {
		problems = append(problems, "AUDIO_MAX_SILENCE_MS must be positive")
	}
	if c.VADThreshold < 0 {
		problems = append(problems, "VAD_THRESHOLD must not be negative")
	}
	if c.MaxJoinRetries < 1 {
		problems = append(problems, "MAX_JOIN_RETRIES must be at least 1")
	}
	if c.JoinRetryDelayMs < 0 {
		problems = append(problems, "JOIN_RETRY_DELAY_MS must not be negative")
	}
	if c.HealthIntervalMs <= 0 {
		problems = append(problems, "HEALTH_CHECK_INTERVAL_MS must be positive")
	}
	if c.LogToFile && c.LogFilePath == "" {
		problems = append(problems, "LOG_FILE_PATH required when LOG_TO_FILE is set")
	}

	if len(problems) > 0 {
		return errors.Newf(errors.CodeConfigInvalid, "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// JoinRetryDelay is the wait between join attempts.
func (c *Config) JoinRetryDelay() time.Duration {
	return time.Duration(c.JoinRetryDelayMs) * time.Millisecond
}

// HealthInterval is the cadence of the health-check loop.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalMs) * time.Millisecond
}

// Fields returns the snapshot for the startup config echo. Secrets are
// included as-is; the logger's redaction masks them on every path.
func (c *Config) Fields() map[string]any {
	return map[string]any{
		"meetingId":        c.MeetingID,
		"meetingPassword":  c.MeetingPassword,
		"sdkKey":           c.SDKKey,
		"sdkSecret":        c.SDKSecret,
		"sdkJwt":           c.SDKJWT,
		"botName":          c.BotName,
		"botId":            c.BotID,
		"provider":         c.Provider,
		"gatewayUrl":       c.GatewayURL,
		"captureDevice":    c.CaptureDevice,
		"sampleRate":       c.SampleRate,
		"channels":         c.Channels,
		"frameMs":          c.FrameMs,
		"chunkMs":          c.ChunkMs,
		"maxSilenceMs":     c.MaxSilenceMs,
		"vadThreshold":     c.VADThreshold,
		"maxJoinRetries":   c.MaxJoinRetries,
		"joinRetryDelayMs": c.JoinRetryDelayMs,
		"reconnectOnError": c.ReconnectOnError,
		"healthIntervalMs": c.HealthIntervalMs,
		"logLevel":         c.LogLevel,
		"logToFile":        c.LogToFile,
		"ipcToStdout":      c.IPCToStdout,
	}
}
