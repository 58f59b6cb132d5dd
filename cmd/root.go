package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/gallery3/config"
	"github.com/s0up4200/gallery3/gallery"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	// Command flags
	dryRun    bool
	noConfirm bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gallery3",
	Short: "A command line client for Gallery 3 sites",
	Long: `gallery3 talks to the REST API of a Gallery 3 installation. It can browse
albums, upload files and whole directory trees, edit titles and descriptions,
delete items and search the gallery with filter expressions.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/gallery3/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "perform a dry run without making changes")
}

// initializeApp loads the configuration and sets up the logger. Clients are
// created by the commands that need one.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	// Override dry-run from command line if specified
	if cmd.Flags().Changed("dry-run") {
		cfg.Safety.DryRun = dryRun
	}

	logger.Debug().Str("config", cfg.Path).Bool("dry_run", cfg.Safety.DryRun).Msg("Configuration loaded")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// clientOptions maps the connection settings onto gallery client options
func clientOptions(gc config.GalleryConfig) []gallery.Option {
	return []gallery.Option{
		gallery.WithBasePath(gc.BasePath),
		gallery.WithPort(gc.Port),
		gallery.WithSSL(gc.SSL),
		gallery.WithTimeout(gc.Timeout),
	}
}

// newClient creates a gallery client from the loaded configuration
func newClient() (*gallery.Client, error) {
	if err := cfg.RequireConnection(); err != nil {
		return nil, err
	}

	client, err := gallery.NewClient(cfg.Gallery.Host, cfg.Gallery.APIKey, logger, clientOptions(cfg.Gallery)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gallery client: %w", err)
	}
	return client, nil
}

// confirm asks a yes/no question on stdout. Anything but "y" or "yes" is a no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	}
	return false
}

// commandContext returns the command's context, falling back to Background
// when cobra was not given one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
