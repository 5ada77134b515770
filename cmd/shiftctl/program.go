package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shiftchain/core/types"
	"shiftchain/crypto"
	program "shiftchain/native/shift"
	"shiftchain/native/system"
	"shiftchain/native/token"
)

// newRewardCmd creates the reward mint and the program's mint authority in
// one transaction. The mint's authority is the mint authority record.
func newRewardCmd(opts *options) *cobra.Command {
	var programKeyPath string
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "reward",
		Short: "Create the reward mint and the mint authority record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payer, err := opts.wallet()
			if err != nil {
				return err
			}
			programKey, err := opts.programKey(programKeyPath)
			if err != nil {
				return err
			}
			opts.programID = programKey.Address().String()

			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			b, err := opts.builder(ctx, c)
			if err != nil {
				return err
			}
			lamports, err := c.MinimumBalance(ctx, token.MintSize)
			if err != nil {
				return err
			}
			mintKey, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			mint := mintKey.Address()
			authority, _ := b.MintAuthority()

			tx := types.NewTransaction(nonce(),
				system.NewCreateAccountInstruction(payer.Address(), mint, lamports, token.MintSize, token.ProgramID),
				token.NewInitializeMintInstruction(mint, decimals, authority),
				b.CreateMintAuthority(payer.Address()),
				b.InitializeMintAuthority(),
			)
			fmt.Fprintf(cmd.ErrOrStderr(), "reward mint %s\n", mint)
			return submit(ctx, cmd.OutOrStdout(), c, tx, payer, mintKey, programKey)
		},
	}
	cmd.Flags().StringVar(&programKeyPath, "program-key", "program.keystore", "Keystore of the program key")
	cmd.Flags().Uint8Var(&decimals, "decimals", 0, "Reward token decimals")
	return cmd
}

func newEmployerCmd(opts *options) *cobra.Command {
	employer := &cobra.Command{
		Use:   "employer",
		Short: "Manage the employer record",
	}

	var (
		programKeyPath string
		tokenMint      string
		collectionMint string
		maxShifts      uint16
		maxEmployees   uint16
		startSlot      uint64
		slotsPerShift  uint64
		baseRate       uint64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create the employer record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payer, err := opts.wallet()
			if err != nil {
				return err
			}
			programKey, err := opts.programKey(programKeyPath)
			if err != nil {
				return err
			}
			opts.programID = programKey.Address().String()

			params := program.EmployerParams{}
			if params.TokenMint, err = crypto.ParseAddress(tokenMint); err != nil {
				return fmt.Errorf("--token-mint: %w", err)
			}
			if params.CollectionMint, err = crypto.ParseAddress(collectionMint); err != nil {
				return fmt.Errorf("--collection-mint: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("max-shifts") {
				params.MaxShifts = &maxShifts
			}
			if flags.Changed("max-employees") {
				params.MaxEmployees = &maxEmployees
			}
			if flags.Changed("start-slot") {
				params.StartSlot = &startSlot
			}
			if flags.Changed("slots-per-shift") {
				params.SlotsPerShift = &slotsPerShift
			}
			if flags.Changed("base-rate") {
				params.BaseRatePerSlot = &baseRate
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			b, err := opts.builder(ctx, c)
			if err != nil {
				return err
			}
			return submit(ctx, cmd.OutOrStdout(), c, b.EmployerTx(nonce(), payer.Address(), params), payer, programKey)
		},
	}
	f := create.Flags()
	f.StringVar(&programKeyPath, "program-key", "program.keystore", "Keystore of the program key")
	f.StringVar(&tokenMint, "token-mint", "", "Reward token mint")
	f.StringVar(&collectionMint, "collection-mint", "", "Collection whose NFTs may register")
	f.Uint16Var(&maxShifts, "max-shifts", program.DefaultMaxShifts, "Number of shifts in the employment period")
	f.Uint16Var(&maxEmployees, "max-employees", program.DefaultMaxEmployees, "Registration capacity")
	f.Uint64Var(&startSlot, "start-slot", 0, "First slot of the period (default: current slot)")
	f.Uint64Var(&slotsPerShift, "slots-per-shift", program.DefaultSlotsPerShift, "Slots per shift")
	f.Uint64Var(&baseRate, "base-rate", program.DefaultBaseRatePerSlot, "Reward per slot in the first shift")
	_ = create.MarkFlagRequired("token-mint")
	_ = create.MarkFlagRequired("collection-mint")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the employer record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			b, err := opts.builder(ctx, c)
			if err != nil {
				return err
			}
			addr, _ := b.Employer()
			rec, err := c.Employer(ctx, addr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	employer.AddCommand(create, show)
	return employer
}

func newEmployeeCmd(opts *options) *cobra.Command {
	employee := &cobra.Command{
		Use:   "employee",
		Short: "Manage employee records",
	}
	register := &cobra.Command{
		Use:   "register <nft-mint>",
		Short: "Register a verified collection NFT as an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nft, err := crypto.ParseAddress(args[0])
			if err != nil {
				return err
			}
			payer, err := opts.wallet()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			b, err := opts.builder(ctx, c)
			if err != nil {
				return err
			}
			return submit(ctx, cmd.OutOrStdout(), c, b.EmployeeTx(nonce(), nft, payer.Address()), payer)
		},
	}
	employee.AddCommand(register)
	return employee
}

func newShiftCmd(opts *options) *cobra.Command {
	shift := &cobra.Command{
		Use:   "shift",
		Short: "Open shifts and settle work",
	}

	open := &cobra.Command{
		Use:   "open",
		Short: "Open the shift of the --key wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := opts.wallet()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			b, err := opts.builder(ctx, c)
			if err != nil {
				return err
			}
			employerAddr, _ := b.Employer()
			employer, err := c.Employer(ctx, employerAddr)
			if err != nil {
				return fmt.Errorf("query employer: %w", err)
			}
			slot, err := c.Slot(ctx)
			if err != nil {
				return err
			}
			return submit(ctx, cmd.OutOrStdout(), c, b.ShiftTx(nonce(), owner.Address(), employer.TokenMint, slot), owner)
		},
	}

	var ownerFlag string
	work := &cobra.Command{
		Use:   "work <nft-mint>...",
		Short: "Settle accrued rewards for the owner's NFTs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payer, err := opts.wallet()
			if err != nil {
				return err
			}
			owner := payer.Address()
			if ownerFlag != "" {
				if owner, err = crypto.ParseAddress(ownerFlag); err != nil {
					return fmt.Errorf("--owner: %w", err)
				}
			}
			nfts := make([]crypto.Address, 0, len(args))
			for _, arg := range args {
				nft, err := crypto.ParseAddress(arg)
				if err != nil {
					return err
				}
				nfts = append(nfts, nft)
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			b, err := opts.builder(ctx, c)
			if err != nil {
				return err
			}
			employerAddr, _ := b.Employer()
			employer, err := c.Employer(ctx, employerAddr)
			if err != nil {
				return fmt.Errorf("query employer: %w", err)
			}
			tx, err := b.AccrueTx(nonce(), owner, employer.TokenMint, nfts...)
			if err != nil {
				return err
			}
			return submit(ctx, cmd.OutOrStdout(), c, tx, payer)
		},
	}
	work.Flags().StringVar(&ownerFlag, "owner", "", "Shift owner (default: the --key wallet)")

	shift.AddCommand(open, work)
	return shift
}
