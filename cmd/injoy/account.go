package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
	"aptos-playground/internal/registrar"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect the profile account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showAccount(cmd)
		},
	}
	return cmd
}

func (a *app) showAccount(cmd *cobra.Command) error {
	ctx := cmd.Context()
	profile, err := a.profile()
	if err != nil {
		return err
	}
	owner, err := a.account(profile)
	if err != nil {
		return err
	}
	registry, client, err := a.client(profile)
	if err != nil {
		return err
	}
	defer registry.Close()

	out := cmd.OutOrStdout()
	authKey := owner.AuthenticationKey()
	fmt.Fprintf(out, "address:        %s\n", owner.Address())
	fmt.Fprintf(out, "public key:     %s\n", hexutil.Encode(owner.PublicKey()))
	fmt.Fprintf(out, "auth key:       %s\n", hexutil.Encode(authKey[:]))

	info, err := client.Account(ctx, owner.Address())
	switch {
	case err == nil:
		fmt.Fprintf(out, "sequence:       %d\n", info.SequenceNumber)
	case xerrors.Has(err, xerrors.CodeNotFound):
		fmt.Fprintln(out, "sequence:       (account not created yet)")
		return nil
	default:
		return err
	}

	coinType, err := a.cfg.CoinType(owner.Address())
	if err != nil {
		return err
	}
	for _, coin := range []struct {
		label string
		tag   move.TypeTag
	}{
		{"gas balance:    ", registrar.AptosCoin},
		{"coin balance:   ", coinType},
	} {
		balance, err := client.CoinBalance(ctx, owner.Address(), coin.tag)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s%d (%s)\n", coin.label, balance, coin.tag)
		case xerrors.Has(err, xerrors.CodeNotFound):
			fmt.Fprintf(out, "%snot registered (%s)\n", coin.label, coin.tag)
		default:
			return err
		}
	}
	return nil
}
