package main

import (
	"github.com/spf13/cobra"

	"shiftchain/crypto"
)

func newAccountCmd(opts *options) *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Inspect accounts",
	}
	show := &cobra.Command{
		Use:   "show <address>",
		Short: "Print an account's owner, balance and data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := crypto.ParseAddress(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			acct, err := opts.client().Account(ctx, addr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acct)
		},
	}
	account.AddCommand(show)
	return account
}
