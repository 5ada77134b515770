package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shiftchain/crypto"
)

type derivedAddress struct {
	Address crypto.Address `json:"address"`
	Bump    uint8          `json:"bump"`
}

func newAddressCmd(opts *options) *cobra.Command {
	address := &cobra.Command{
		Use:   "address",
		Short: "Address helpers",
	}
	derive := &cobra.Command{
		Use:   "derive mint-authority|employer|employee <nft-mint>|shift <owner>",
		Short: "Print the program-derived address of a record",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			b, err := opts.builder(ctx, opts.client())
			if err != nil {
				return err
			}

			var out derivedAddress
			switch args[0] {
			case "mint-authority":
				out.Address, out.Bump = b.MintAuthority()
			case "employer":
				out.Address, out.Bump = b.Employer()
			case "employee", "shift":
				if len(args) != 2 {
					return fmt.Errorf("%s needs an address argument", args[0])
				}
				seed, err := crypto.ParseAddress(args[1])
				if err != nil {
					return err
				}
				if args[0] == "employee" {
					out.Address, out.Bump = b.Employee(seed)
				} else {
					out.Address, out.Bump = b.Shift(seed)
				}
			default:
				return fmt.Errorf("unknown record kind %q", args[0])
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	address.AddCommand(derive)
	return address
}
