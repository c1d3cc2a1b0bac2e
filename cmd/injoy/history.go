package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/journal"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded by the file journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Journal.Driver != journal.DriverFile {
				return xerrors.New(xerrors.CodeConfig,
					fmt.Sprintf("history 仅支持 file 驱动，当前为 %s", a.cfg.Journal.Driver),
					xerrors.WithOperation("read history"))
			}
			entries, err := journal.ReadFile(a.cfg.Journal.File.Path, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "FINISHED\tNETWORK\tSEQ\tSTATUS\tTXN\tERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					e.FinishedAt.Format("2006-01-02 15:04:05"), e.Network, e.SequenceNumber, e.Status, e.TxnHash, e.ErrorCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
