package cmd

import (
	"fmt"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const repository = "s0up4200/gallery3"

var (
	version   = "dev"
	buildTime = "unknown"

	forceUpdate bool
)

// SetVersion records the build information injected at link time
func SetVersion(v, t string) {
	version = v
	buildTime = t
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// no config needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gallery3 %s\n", version)
		fmt.Printf("Built:      %s\n", buildTime)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update gallery3 to the latest release",
	Long: `Check GitHub for the latest release and replace the running binary with it.
Development builds are only updated with --force.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&forceUpdate, "force", false, "update development builds too")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// currentVersion parses the build version. Development builds count as 0.0.0.
func currentVersion() (semver.Version, error) {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, fmt.Errorf("not a release build (%s): %w", version, err)
	}
	return v, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, err := currentVersion()
	if err != nil {
		if !forceUpdate {
			return fmt.Errorf("%w; use --force to update anyway", err)
		}
		current = semver.Version{}
	}

	ctx := commandContext(cmd)
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repository))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	if latest.LessOrEqual(current.String()) {
		fmt.Printf("✓ Already up to date (%s)\n", version)
		return nil
	}

	logger.Info().Str("current", current.String()).Str("latest", latest.Version()).Msg("Update available")

	if cfg.Safety.DryRun {
		logger.Info().Str("asset", latest.AssetName).Msg("[DRY RUN] Would update")
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Printf("✓ Updated to %s\n", latest.Version())
	return nil
}
