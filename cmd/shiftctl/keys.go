package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shiftchain/cmd/internal/passphrase"
	"shiftchain/crypto"
)

func newKeysCmd(opts *options) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage wallet keystores",
	}

	var out string
	var force bool
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a key and write it to an encrypted keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := out
			if path == "" {
				path = opts.keyPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			}
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			pass, err := passphrase.NewSource(opts.passEnv, "new").Get()
			if err != nil {
				return err
			}
			if err := crypto.SaveToKeystore(path, key, pass); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.Address())
			return nil
		},
	}
	newCmd.Flags().StringVar(&out, "out", "", "Keystore path (default: --key)")
	newCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing keystore")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the address of the --key keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := opts.wallet()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.Address())
			return nil
		},
	}

	keys.AddCommand(newCmd, show)
	return keys
}
