package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aptos-playground/internal/faucet"
	"aptos-playground/internal/journal"
	"aptos-playground/internal/registrar"
)

type registerOptions struct {
	noFund   bool
	gasPrice uint64
	maxGas   uint64
	owner    string
}

func newRegisterCommand(a *app) *cobra.Command {
	opts := &registerOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Fund the profile account and register the managed coin for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.register(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.noFund, "no-fund", false, "skip the faucet even when the profile has one")
	flags.Uint64Var(&opts.gasPrice, "gas-price", 0, "gas unit price (default: node estimate)")
	flags.Uint64Var(&opts.maxGas, "max-gas", 0, "max gas amount (default from config)")
	flags.StringVar(&opts.owner, "coin-owner", "", "address publishing the coin module (default: profile account)")
	return cmd
}

func (a *app) register(cmd *cobra.Command, opts *registerOptions) error {
	ctx := cmd.Context()
	if opts.owner != "" {
		a.cfg.Coin.Owner = opts.owner
	}
	if opts.maxGas > 0 {
		a.cfg.Transaction.MaxGasAmount = opts.maxGas
	}
	if opts.gasPrice > 0 {
		a.cfg.Transaction.GasUnitPrice = opts.gasPrice
	}

	profile, err := a.profile()
	if err != nil {
		return err
	}
	owner, err := a.account(profile)
	if err != nil {
		return err
	}
	coinType, err := a.cfg.CoinType(owner.Address())
	if err != nil {
		return err
	}
	a.log.Debug("coin type resolved", "coin_type", coinType.String())

	registry, client, err := a.client(profile)
	if err != nil {
		return err
	}
	defer registry.Close()

	sink, err := journal.Open(ctx, a.cfg.Journal)
	if err != nil {
		return err
	}
	defer sink.Close()

	regOpts := []registrar.Option{
		registrar.WithNetwork(networkName(profile)),
		registrar.WithJournal(sink),
		registrar.WithMaxGasAmount(a.cfg.Transaction.MaxGasAmount),
		registrar.WithGasUnitPrice(a.cfg.Transaction.GasUnitPrice),
		registrar.WithExpirationWindow(a.cfg.ExpirationWindow()),
		registrar.WithSequenceSync(a.cfg.SyncSequenceNumber()),
	}
	if profile.FaucetURL != "" && !opts.noFund {
		fc, err := faucet.NewClient(faucet.Config{
			URL:       profile.FaucetURL,
			Timeout:   a.cfg.HTTPTimeout(),
			AuthToken: profile.FaucetAuthToken,
		})
		if err != nil {
			return err
		}
		regOpts = append(regOpts, registrar.WithFaucet(fc, a.cfg.Transaction.FundAmount))
	}

	reg, err := registrar.New(client, regOpts...)
	if err != nil {
		return err
	}
	result, err := reg.Run(ctx, owner, coinType)
	if result != nil && result.Pending.Hash != "" {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run:      %s\n", result.RunID)
		fmt.Fprintf(out, "coin:     %s\n", result.CoinType)
		fmt.Fprintf(out, "txn:      %s\n", result.Pending.Hash)
		fmt.Fprintf(out, "status:   %s\n", result.Record.Status)
		if result.Record.VMStatus != "" {
			fmt.Fprintf(out, "vm:       %s\n", result.Record.VMStatus)
		}
		fmt.Fprintf(out, "sequence: %d\n", result.SequenceNumber)
	}
	return err
}
