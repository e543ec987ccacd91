// meetbot joins a meeting as a silent participant, captures the mixed
// audio, and streams transcription-ready chunks to its parent process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "0.3.0"

// ipcToStdout mirrors MEETBOT_IPC; the flag wins when set.
var ipcToStdout bool

func main() {
	root := &cobra.Command{
		Use:   "meetbot",
		Short: "Meeting notetaker bot",
		Long: `meetbot joins a meeting as a silent participant, captures the mixed
audio, segments it into transcription-ready chunks, and writes them as
newline-delimited JSON to stdout. Configuration comes from the
environment; control commands arrive on stdin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}

	root.Flags().BoolVar(&ipcToStdout, "ipc", false, "write IPC messages to stdout (same as MEETBOT_IPC=1)")

	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "meetbot:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the meetbot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
