package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/hashpage/internal/config"
	herrors "github.com/vango-dev/hashpage/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╻ ╻┏━┓┏━┓╻ ╻┏━┓┏━┓┏━╸┏━╸
  ┣━┫┣━┫┗━┓┣━┫┣━┛┣━┫┃╺┓┣╸
  ╹ ╹╹ ╹┗━┛╹ ╹╹  ╹ ╹┗━┛┗━╸
`

// cli holds state shared by every command.
type cli struct {
	v          *viper.Viper
	configPath string
	verbose    bool
}

func main() {
	c := &cli{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "hashpage",
		Short: "Serve hash-routed HTML fragment sites",
		Long: `hashpage renders sites built from HTML fragments.

Every page is a file holding a <template>, with an optional <style>,
<script> and <title>. The location hash picks the page, and widgets
declared by pages are fetched, cached and mounted on demand.

  • render a hash to HTML from the command line
  • serve a site to browsers over a WebSocket bridge
  • inspect and clear the fragment cache`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Config file (default ./"+config.ConfigFileName+")")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("source", "", "Fragment source: directory, http(s)://, s3:// or gs://")
	flags.String("store", "", "Cache store: memory, badger[:DIR] or sqlite:FILE")
	_ = c.v.BindPFlag("source", flags.Lookup("source"))
	_ = c.v.BindPFlag("store", flags.Lookup("store"))

	rootCmd.AddCommand(
		initCmd(),
		renderCmd(c),
		serveCmd(c),
		cacheCmd(c),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		herrors.PrintError(err)
		os.Exit(1)
	}
}

// load reads the configuration and sets up the process logger.
func (c *cli) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.v, c.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if c.verbose || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
