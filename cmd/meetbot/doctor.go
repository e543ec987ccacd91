package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/saleskit-io/meetbot/internal/config"
	"github.com/saleskit-io/meetbot/internal/logging"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment before joining a meeting",
		Long: `Verifies that meetbot's configuration, credentials, gateway address,
and capture device are usable. Reports pass/fail for each check and
echoes the resolved configuration with secrets masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("meetbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Environment parses and validates.
			cfg, err := config.Load()
			if err != nil {
				printFail("Configuration", err.Error())
				fmt.Printf("\nResults: 0 passed, 0 warnings, 1 failed\n")
				return fmt.Errorf("1 check(s) failed")
			}
			printPass("Configuration", "valid")
			passed++

			// 2. Meeting coordinates.
			if cfg.MeetingID == "" {
				printWarn("Meeting ID", "MEETING_ID is empty, joins will fail")
				warned++
			} else {
				printPass("Meeting ID", cfg.MeetingID)
				passed++
			}

			// 3. Provider reachability.
			switch cfg.Provider {
			case "rtms":
				if u, err := url.Parse(cfg.GatewayURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
					printFail("Gateway URL", fmt.Sprintf("%q is not a ws:// or wss:// address", cfg.GatewayURL))
					failed++
				} else {
					printPass("Gateway URL", cfg.GatewayURL)
					passed++
				}
				if cfg.SDKJWT == "" && (cfg.SDKKey == "" || cfg.SDKSecret == "") {
					printWarn("Credentials", "no SDK_JWT and no SDK_KEY/SDK_SECRET pair, joins will be simulated")
					warned++
				} else {
					printPass("Credentials", "present")
					passed++
				}
			case "device":
				if n, err := countInputDevices(); err != nil {
					printFail("Capture devices", err.Error())
					failed++
				} else if n == 0 {
					printFail("Capture devices", "no input devices found")
					failed++
				} else {
					printPass("Capture devices", fmt.Sprintf("%d input device(s)", n))
					passed++
				}
			case "none":
				printWarn("Provider", "set to none, joins will be simulated")
				warned++
			}

			// 4. Chunk dump directory writable.
			if cfg.ChunkDumpDir != "" {
				if err := checkWritableDir(cfg.ChunkDumpDir); err != nil {
					printFail("Chunk dump dir", err.Error())
					failed++
				} else {
					printPass("Chunk dump dir", cfg.ChunkDumpDir)
					passed++
				}
			}

			// 5. Log file writable.
			if cfg.LogToFile {
				if err := checkWritableDir(filepath.Dir(cfg.LogFilePath)); err != nil {
					printFail("Log file", err.Error())
					failed++
				} else {
					printPass("Log file", cfg.LogFilePath)
					passed++
				}
			}

			echo := logging.Redact(logging.Fields(cfg.Fields()))
			data, _ := json.MarshalIndent(echo, "", "  ")
			fmt.Printf("\nResolved configuration:\n%s\n", data)

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

// checkWritableDir creates dir if needed and probes it with a temp file.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".meetbot-doctor-*")
	if err != nil {
		return fmt.Errorf("%s not writable: %w", dir, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func countInputDevices() (int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("portaudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, err := portaudio.Devices()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			n++
		}
	}
	return n, nil
}
