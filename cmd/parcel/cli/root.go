// Package cli implements the parcel command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/parcel"
	"github.com/meigma/parcel/cmd/parcel/cli/config"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	cfgFile string
	verbose bool
)

// cfg is the effective configuration, loaded before any command runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "parcel",
	Short: "Pack and unpack archives",
	Long: `Parcel packs files into tar, zip, jar, gzip, tar.gz and .Z archives and
unpacks them again.

Formats are inferred from file names when packing and from file contents when
unpacking. Entries that would escape the destination directory are extracted
under their base name instead.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Archive Commands:"},
		&cobra.Group{ID: "info", Title: "Inspection Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/parcel/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")
	flags.Duration("timeout", config.DefaultTimeout, "Deadline for the external compress and uncompress tools")
	flags.String("progress", config.ProgressAuto, "Progress display: auto, tty or plain")

	//nolint:errcheck // flags are defined above
	viper.BindPFlag("timeout", flags.Lookup("timeout"))
	//nolint:errcheck // flags are defined above
	viper.BindPFlag("progress", flags.Lookup("progress"))

	rootCmd.Version = version
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// loadConfig reads the config file, environment and flags into cfg.
func loadConfig(_ *cobra.Command, _ []string) error {
	config.Setup(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName(strings.TrimSuffix(config.FileName, ".yaml"))
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// newLogger returns a logger writing to stderr, or nil when logging is off.
func newLogger() *slog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if level == "" {
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "parcel",
		Level:  lvl,
	})
	return slog.New(handler)
}

// newClient creates a parcel client with configured options.
func newClient(progress parcel.ProgressFunc) (*parcel.Client, error) {
	opts := []parcel.ClientOption{
		parcel.WithCommandTimeout(cfg.Timeout),
	}
	if logger := newLogger(); logger != nil {
		opts = append(opts, parcel.WithLogger(logger))
	}
	if progress != nil {
		opts = append(opts, parcel.WithProgress(progress))
	}
	return parcel.NewClient(opts...)
}

// parseFormatFlag parses a --format value; empty means infer.
func parseFormatFlag(value string) (parcel.Format, error) {
	if value == "" {
		return parcel.FormatUnspecified, nil
	}
	return parcel.ParseFormat(value)
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts parcel errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	var cmdErr *parcel.CommandError
	switch {
	case errors.As(err, &cmdErr):
		msg := fmt.Sprintf("Error: %s exited with status %d", strings.Join(cmdErr.Args, " "), cmdErr.ExitCode)
		if stderr := strings.TrimSpace(cmdErr.Stderr); stderr != "" {
			msg += ": " + stderr
		}
		return msg
	case errors.Is(err, parcel.ErrNotDetected):
		return fmt.Sprintf("Error: cannot determine archive format (use --format): %v", err)
	case errors.Is(err, parcel.ErrFormat):
		return fmt.Sprintf("Error: format cannot hold this input: %v", err)
	case errors.Is(err, parcel.ErrTimeout):
		return fmt.Sprintf("Error: command timed out (see --timeout): %v", err)
	case errors.Is(err, parcel.ErrUsage):
		return fmt.Sprintf("Error: invalid usage: %v", err)
	case errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
