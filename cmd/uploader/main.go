// Command uploader previews media files and submits them to the upload service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type globalOptions struct {
	server   string
	endpoint string
	logLevel string
	logJSON  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "uploader",
		Short: "Preview and upload photos and videos",
		Long: `uploader previews the selected photos and videos, then posts them to the
media year service and prints where the results can be found.

Examples:
  uploader preview beach.jpg party.mp4
  uploader submit --server http://localhost:8089 beach.jpg party.mp4`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", "http://localhost:8089", "Base URL of the upload service")
	flags.StringVar(&opts.endpoint, "endpoint", "", "Upload path (default /upload)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(
		previewCmd(opts),
		submitCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uploader %s (%s)\n", version, commit)
		},
	}
}
