package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uluk20-22520/uluk-site/internal/content"
	"github.com/uluk20-22520/uluk-site/internal/editor"
	"github.com/uluk20-22520/uluk-site/internal/platform/config"
)

func newContentCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect and change the content document",
	}
	cmd.AddCommand(
		newContentShowCommand(opts),
		newContentExportCommand(opts),
		newContentImportCommand(opts),
		newContentResetCommand(opts),
		newContentAddCommand(opts),
		newContentEditCommand(opts),
		newContentDeleteCommand(opts),
	)
	return cmd
}

func newContentShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective document and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, config.WithoutAdminCredentials())
			if err != nil {
				return err
			}
			defer a.Close()

			doc, origin := a.content.Load(cmd.Context())
			raw, err := content.Export(doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "origin: %s\n", origin)
			_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
			return err
		},
	}
}

func newContentExportCommand(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the document as indented JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, config.WithoutAdminCredentials())
			if err != nil {
				return err
			}
			defer a.Close()

			doc, _ := a.content.Load(cmd.Context())
			raw, err := content.Export(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, raw)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", content.ExportFilename, `output file ("-" for stdout)`)
	return cmd
}

func newContentImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the stored document with a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), opts, config.WithoutAdminCredentials())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.content.Import(cmd.Context(), raw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "JSON импортирован")
			return nil
		},
	}
}

func newContentResetCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored document so the default is served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, config.WithoutAdminCredentials())
			if err != nil {
				return err
			}
			defer a.Close()

			term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			ok, err := editor.New(cmd.Context(), a.content).Reset(cmd.Context(), term.confirmer(yes))
			if err != nil || !ok {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Данные сброшены к default")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newContentAddCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "add <services|cases|testimonials|faq>",
		Short:     "Prompt for a new collection item and save it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editCollection(cmd, opts, args, func(ed *editor.Editor, kind editor.Kind, _ int, term terminal) (bool, error) {
				return ed.Add(kind, term)
			})
		},
	}
}

func newContentEditCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <kind> <index>",
		Short: "Prompt with the current values of an item and save the answers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editCollection(cmd, opts, args, func(ed *editor.Editor, kind editor.Kind, index int, term terminal) (bool, error) {
				return ed.Edit(kind, index, term)
			})
		},
	}
}

func newContentDeleteCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <kind> <index>",
		Short: "Remove an item after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editCollection(cmd, opts, args, func(ed *editor.Editor, kind editor.Kind, index int, term terminal) (bool, error) {
				return ed.Delete(kind, index, term.confirmer(yes))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

type collectionOp func(ed *editor.Editor, kind editor.Kind, index int, term terminal) (bool, error)

// editCollection applies op to a fresh draft and saves it when op changed something.
func editCollection(cmd *cobra.Command, opts *globalOptions, args []string, op collectionOp) error {
	kind, err := editor.ParseKind(args[0])
	if err != nil {
		return err
	}
	index := -1
	if len(args) > 1 {
		if index, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("index %q: %w", args[1], editor.ErrIndexOutOfRange)
		}
	}

	a, err := newApp(cmd.Context(), opts, config.WithoutAdminCredentials())
	if err != nil {
		return err
	}
	defer a.Close()

	ed := editor.New(cmd.Context(), a.content)
	changed, err := op(ed, kind, index, newTerminal(cmd.InOrStdin(), cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(cmd.ErrOrStderr(), "no changes")
		return nil
	}
	if err := ed.Save(cmd.Context(), editor.ScalarsOf(ed.Draft())); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Изменения сохранены!")
	return nil
}

func kindNames() []string {
	out := make([]string, len(editor.Kinds))
	for i, k := range editor.Kinds {
		out[i] = string(k)
	}
	return out
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" || path == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
