package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/esimov/meanface/config"
	"github.com/esimov/meanface/logger"
	"github.com/esimov/meanface/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const HelpBanner = `
┌┬┐┌─┐┌─┐┌┐┌┌─┐┌─┐┌─┐┌─┐
│││├┤ ├─┤│││├┤ ├─┤│  ├┤
┴ ┴└─┘┴ ┴┘└┘└  ┴ ┴└─┘└─┘

Average face generator.
    Version: %s

`

// pipeName is the file name that indicates stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// cfg and log are initialized before any subcommand runs.
	cfg *config.Config
	log = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "meanface",
	Short:         "Average face generator",
	Long:          fmt.Sprintf(HelpBanner, Version),
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := c.ApplyEnv(); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			c.Logging.Format = logFormat
		}

		l, err := logger.New(c.Logging)
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")

	rootCmd.AddCommand(averageCmd, landmarksCmd)
}

func main() {
	// Cancel the running command on CTRL-C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(fmt.Sprintf("\nError: %v", err), utils.ErrorMessage))
		os.Exit(1)
	}
}
