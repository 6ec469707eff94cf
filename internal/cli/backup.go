package cli

import (
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uluk20-22520/uluk-site/internal/backup"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
)

func newBackupCommand(opts *globalOptions) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the content document and leads to Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, config.WithoutAdminCredentials())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withLeads(leads.NopNotifier{}); err != nil {
				return err
			}

			if bucket == "" {
				bucket = a.cfg.Backup.Bucket
			}
			if bucket == "" {
				return errors.New("backup bucket is not configured (" + config.EnvName("backup.bucket") + ")")
			}

			client, err := gcs.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("storage client: %w", err)
			}
			defer func() {
				if err := client.Close(); err != nil {
					a.logger.Warn("storage close error", zap.Error(err))
				}
			}()
			archiver, err := backup.NewGCSArchiver(client, bucket)
			if err != nil {
				return err
			}

			res, err := backup.Runner{
				Content:  a.content,
				Leads:    a.leads,
				Archiver: archiver,
				Prefix:   a.cfg.Backup.Prefix,
			}.Run(ctx)
			if err != nil {
				return err
			}
			for _, object := range res.Objects {
				fmt.Fprintf(cmd.OutOrStdout(), "gs://%s/%s\n", bucket, object)
			}
			a.logger.Info("backup written", zap.String("bucket", bucket), zap.Strings("objects", res.Objects))
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "override the configured bucket")
	return cmd
}
