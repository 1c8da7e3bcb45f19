package cmd

import (
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/mfahlbusch/camswitch/internal/version"
)

// CreateUpdateCmd creates the update command, which replaces the running
// binary with the latest GitHub release.
func CreateUpdateCmd() *cobra.Command {
	var repository string
	var checkOnly bool
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update camswitch to the latest release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
			if err != nil {
				return fmt.Errorf("create GitHub source: %w", err)
			}
			updater, err := selfupdate.NewUpdater(selfupdate.Config{
				Source:     source,
				Prerelease: prerelease,
			})
			if err != nil {
				return fmt.Errorf("create updater: %w", err)
			}

			repo := selfupdate.ParseSlug(repository)
			latest, found, err := updater.DetectLatest(ctx, repo)
			if err != nil {
				return fmt.Errorf("detect latest release: %w", err)
			}
			if !found {
				return fmt.Errorf("no release found for %s/%s", runtime.GOOS, runtime.GOARCH)
			}

			current := version.Version
			if latest.LessOrEqual(current) {
				fmt.Printf("camswitch %s is up to date\n", current)
				return nil
			}

			fmt.Printf("Update available: %s -> %s\n", current, latest.Version())
			if checkOnly {
				return nil
			}

			exe, err := selfupdate.ExecutablePath()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			if err := updater.UpdateTo(ctx, latest, exe); err != nil {
				return fmt.Errorf("apply update: %w", err)
			}

			fmt.Printf("Updated to %s, restart the daemon to use it\n", latest.Version())
			return nil
		},
	}

	cmd.Flags().StringVar(&repository, "repo", "mfahlbusch/camswitch", "GitHub repository to update from")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for a new release, do not install")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Allow prerelease versions")

	return cmd
}
