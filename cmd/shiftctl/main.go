package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shiftchain/cmd/internal/passphrase"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/sdk/client"
	sdk "shiftchain/sdk/shift"
)

// options are the persistent flags shared by every command.
type options struct {
	rpcURL         string
	keyPath        string
	passEnv        string
	programPassEnv string
	programID      string
	timeout        time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "shiftctl",
		Short:        "Operate the shift reward program",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.rpcURL, "rpc", "http://localhost:8899", "Node HTTP endpoint")
	root.PersistentFlags().StringVar(&opts.keyPath, "key", "wallet.keystore", "Keystore of the signing wallet")
	root.PersistentFlags().StringVar(&opts.passEnv, "pass-env", "SHIFT_WALLET_PASS", "Environment variable holding the wallet passphrase")
	root.PersistentFlags().StringVar(&opts.programPassEnv, "program-pass-env", "SHIFT_PROGRAM_PASS", "Environment variable holding the program keystore passphrase")
	root.PersistentFlags().StringVar(&opts.programID, "program", "", "Shift program address (default: asked from the node)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(
		newKeysCmd(opts),
		newAddressCmd(opts),
		newRewardCmd(opts),
		newEmployerCmd(opts),
		newEmployeeCmd(opts),
		newShiftCmd(opts),
		newAccountCmd(opts),
	)
	return root
}

func (o *options) client() *client.Client {
	return client.New(o.rpcURL)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func (o *options) wallet() (*crypto.PrivateKey, error) {
	return loadKey(o.keyPath, passphrase.NewSource(o.passEnv, "wallet"))
}

func (o *options) programKey(path string) (*crypto.PrivateKey, error) {
	return loadKey(path, passphrase.NewSource(o.programPassEnv, "program"))
}

func loadKey(path string, src *passphrase.Source) (*crypto.PrivateKey, error) {
	pass, err := src.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

// builder resolves the program address from the flag or the node.
func (o *options) builder(ctx context.Context, c *client.Client) (sdk.Builder, error) {
	if o.programID != "" {
		id, err := crypto.ParseAddress(o.programID)
		if err != nil {
			return sdk.Builder{}, fmt.Errorf("--program: %w", err)
		}
		return sdk.NewBuilder(id), nil
	}
	info, err := c.Program(ctx)
	if err != nil {
		return sdk.Builder{}, fmt.Errorf("query program: %w", err)
	}
	return sdk.NewBuilder(info.ProgramID), nil
}

// nonce only has to differ between otherwise identical transactions.
func nonce() uint64 {
	return uint64(time.Now().UnixNano())
}

func submit(ctx context.Context, out io.Writer, c *client.Client, tx *types.Transaction, signers ...*crypto.PrivateKey) error {
	if err := tx.Sign(signers...); err != nil {
		return err
	}
	receipt, err := c.Submit(ctx, tx)
	if receipt != nil {
		if printErr := printJSON(out, receipt); printErr != nil {
			return printErr
		}
	}
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
