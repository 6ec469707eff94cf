package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/uluk20-22520/uluk-site/internal/inbox"
	"github.com/uluk20-22520/uluk-site/internal/leads"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
)

func newLeadsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect and export captured leads",
	}
	cmd.AddCommand(
		newLeadsListCommand(opts),
		newLeadsExportCommand(opts),
		newLeadsClearCommand(opts),
	)
	return cmd
}

// leadsApp opens the store with a lead repository that never notifies.
func leadsApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	a, err := newApp(cmd.Context(), opts, config.WithoutAdminCredentials())
	if err != nil {
		return nil, err
	}
	if err := a.withLeads(leads.NopNotifier{}); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newLeadsListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print leads newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := leadsApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.leads.List(cmd.Context())
			if err != nil {
				return err
			}
			view := inbox.Build(list, a.cfg.Site.Location)
			if view.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), inbox.EmptyText)
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tДата\tИмя\t%s\t%s\t%s\t%s\n", inbox.LabelPhone, inbox.LabelService, inbox.LabelChannel, inbox.LabelComment)
			for _, c := range view.Cards {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Date, c.Name, c.Phone, c.Service, c.Channel, c.Comment)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d\n", view.Count)
			return nil
		},
	}
}

func newLeadsExportCommand(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every lead as indented JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := leadsApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			raw, err := a.leads.ExportAll(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, raw)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", leads.ExportFilename, `output file ("-" for stdout)`)
	return cmd
}

func newLeadsClearCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			if !term.confirmer(yes).Confirm(inbox.ConfirmClear) {
				return nil
			}
			a, err := leadsApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.leads.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Все заявки удалены")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
