package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/pscheid92/wagate/internal/platform/version"
	"github.com/pscheid92/wagate/internal/sessionstore"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		},
	}
}

func newListCmd(flags *storeFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, func(store *sessionstore.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(records)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tREADY\tDESCRIPTION")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%t\t%s\n", r.ID, r.Ready, r.Description)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRemoveCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a session so it is not restored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withStore(cmd.Context(), flags, func(store *sessionstore.Store) error {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("session %q not found", id)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
				return err
			})
		},
	}
}

func newResetCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Mark every session as not ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, func(store *sessionstore.Store) error {
				if err := store.ResetReady(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "reset ready flags")
				return err
			})
		},
	}
}
