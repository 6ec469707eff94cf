// Package cli wires the site's commands.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configFile     string
	envFile        string
	secretsProject string
}

// NewRootCommand builds the `site` command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "site",
		Short:         "uluk marketing site and admin panel",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "site.yaml", "YAML config file (empty to skip)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", ".env file (empty to skip)")
	root.PersistentFlags().StringVar(&opts.secretsProject, "secrets-project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "Secret Manager project for short secret references")

	root.AddCommand(
		newServeCommand(opts),
		newContentCommand(opts),
		newLeadsCommand(opts),
		newAdminCommand(),
		newBackupCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(version).ExecuteContext(ctx)
}
