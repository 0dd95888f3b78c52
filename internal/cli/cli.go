// Package cli defines the billdiff command line.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lundberg/billdiff/internal/config"
	"github.com/lundberg/billdiff/internal/fetch"
)

// RunFunc receives the fully resolved configuration once parsing and
// validation succeed.
type RunFunc func(cfg *config.Config) error

const longHelp = `Billdiff compares a legislative amendment's text against the original
bill text it modifies and shows the redline in your browser.

Inputs can be two local text files, two congress.gov (or other) URLs,
or nothing at all, in which case the page offers paste boxes:

  billdiff                                     start in paste mode
  billdiff old.txt new.txt                     compare two files
  billdiff --watch old.txt new.txt             re-compare when the files change
  billdiff https://www.congress.gov/bill/...   compare two congress.gov pages \
           https://www.congress.gov/amendment/...`

// NewCommand builds the root command. All work happens in run so the
// command itself stays testable.
func NewCommand(run RunFunc) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "billdiff [original amended]",
		Short:         "View a legislative amendment as a redline in your browser",
		Long:          longHelp,
		Args:          exactlyZeroOrTwoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args, configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.String("host", defaults.Host, "HTTP server host")
	flags.Int("port", defaults.Port, "HTTP server port (0 = auto)")
	flags.String("granularity", defaults.Granularity, "comparison granularity: word or line")
	flags.String("view", defaults.View, "initial layout: inline or split")
	flags.Duration("timeout", defaults.Timeout, "timeout per page fetch")
	flags.Bool("no-open", false, "don't open the browser automatically")
	flags.Bool("watch", false, "watch input files and refresh the diff on change")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.StringVar(&configPath, "config", "", "config file (default ~/"+config.UserConfigPath+")")

	return cmd
}

func exactlyZeroOrTwoArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("expected no arguments or exactly two (original and amended), got %d", len(args))
	}
	return nil
}

// buildConfig layers defaults, config files and flags, then resolves
// the positional arguments into an input mode.
func buildConfig(cmd *cobra.Command, args []string, configPath string) (*config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			return nil, err
		}
	} else if err := config.LoadUserFile(cfg); err != nil {
		return nil, err
	}

	// Flags beat file values, but only when actually set.
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("granularity") {
		cfg.Granularity, _ = flags.GetString("granularity")
	}
	if flags.Changed("view") {
		cfg.View, _ = flags.GetString("view")
	}
	if flags.Changed("timeout") {
		var d time.Duration
		d, _ = flags.GetDuration("timeout")
		cfg.Timeout = d
	}
	if flags.Changed("no-open") {
		cfg.NoOpen, _ = flags.GetBool("no-open")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	cfg.Watch, _ = flags.GetBool("watch")

	if len(args) == 2 {
		cfg.Original, cfg.Amended = args[0], args[1]
		switch {
		case fetch.IsURL(args[0]) && fetch.IsURL(args[1]):
			cfg.Mode = config.ModeURLs
		case !fetch.IsURL(args[0]) && !fetch.IsURL(args[1]):
			cfg.Mode = config.ModeFiles
		default:
			return nil, fmt.Errorf("cannot mix a file and a URL: %q vs %q", args[0], args[1])
		}
	}

	if cfg.Watch && cfg.Mode != config.ModeFiles {
		return nil, fmt.Errorf("--watch requires two local files")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
