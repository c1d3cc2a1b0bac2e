package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aptos-playground/internal/web3/provider"
)

func newNetworksCommand(a *app) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List known networks and optionally check their chain ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := a.networks()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if !probe {
				fmt.Fprintln(w, "NETWORK\tCHAIN ID\tREST\tFAUCET")
				for _, name := range defs.Names() {
					def, _ := defs.Lookup(name)
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, def.ChainID, def.RESTURL, def.FaucetURL)
				}
				return nil
			}

			registry, err := provider.NewRegistry(defs, "", provider.Options{HTTPTimeout: a.cfg.HTTPTimeout()})
			if err != nil {
				return err
			}
			defer registry.Close()

			fmt.Fprintln(w, "NETWORK\tEXPECTED\tREPORTED\tLEDGER VERSION\tSTATE")
			for _, status := range registry.Probe(cmd.Context()) {
				state := "ok"
				switch {
				case status.Err != nil:
					state = status.Err.Error()
				case status.Mismatch():
					state = "chain id mismatch"
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", status.Network, status.ExpectedChainID, status.ChainID, status.LedgerVersion, state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "query every node for its chain id")
	return cmd
}
