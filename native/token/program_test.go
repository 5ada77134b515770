package token_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/runtime"
	"shiftchain/core/state"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/system"
	"shiftchain/native/token"
	"shiftchain/storage"
)

type harness struct {
	rt    *runtime.Runtime
	payer *crypto.PrivateKey
	nonce uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	rt := runtime.New(st, runtime.NewManualClock(1))
	rt.Register(system.New(), token.New(), token.NewAssociated())
	payer := newKey(t)
	require.NoError(t, st.SetAccount(payer.Address(), &types.StoredAccount{Owner: system.ProgramID, Lamports: 1_000_000_000}))
	return &harness{rt: rt, payer: payer}
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func (h *harness) submit(t *testing.T, signers []*crypto.PrivateKey, ixs ...types.Instruction) (*types.Receipt, error) {
	t.Helper()
	h.nonce++
	tx := types.NewTransaction(h.nonce, ixs...)
	require.NoError(t, tx.Sign(append([]*crypto.PrivateKey{h.payer}, signers...)...))
	return h.rt.Execute(context.Background(), tx)
}

func (h *harness) createMint(t *testing.T, authority crypto.Address) crypto.Address {
	t.Helper()
	mintKey := newKey(t)
	mint := mintKey.Address()
	_, err := h.submit(t, []*crypto.PrivateKey{mintKey},
		system.NewCreateAccountInstruction(h.payer.Address(), mint, h.rt.Rent().MinimumBalance(token.MintSize), token.MintSize, token.ProgramID),
		token.NewInitializeMintInstruction(mint, 0, authority),
	)
	require.NoError(t, err)
	return mint
}

func (h *harness) holding(t *testing.T, addr crypto.Address) *token.Account {
	t.Helper()
	stored, err := h.rt.Account(addr)
	require.NoError(t, err)
	require.NotNil(t, stored)
	holding, err := token.DecodeAccount(stored.Data)
	require.NoError(t, err)
	return holding
}

func TestMintToAssociatedAccount(t *testing.T) {
	h := newHarness(t)
	authority := newKey(t)
	wallet := newKey(t).Address()
	mint := h.createMint(t, authority.Address())

	ata, _ := token.AssociatedAddress(wallet, mint)
	_, err := h.submit(t, []*crypto.PrivateKey{authority},
		token.NewCreateAssociatedAccountInstruction(h.payer.Address(), wallet, mint),
		token.NewMintToInstruction(mint, ata, authority.Address(), 5),
	)
	require.NoError(t, err)

	holding := h.holding(t, ata)
	require.Equal(t, uint64(5), holding.Amount)
	require.Equal(t, wallet, holding.Owner)
	require.Equal(t, mint, holding.Mint)

	stored, err := h.rt.Account(mint)
	require.NoError(t, err)
	decoded, err := token.DecodeMint(stored.Data)
	require.NoError(t, err)
	require.Equal(t, uint64(5), decoded.Supply)
}

func TestCreateAssociatedAccountIsIdempotent(t *testing.T) {
	h := newHarness(t)
	mint := h.createMint(t, newKey(t).Address())
	wallet := newKey(t).Address()

	for i := 0; i < 2; i++ {
		receipt, err := h.submit(t, nil, token.NewCreateAssociatedAccountInstruction(h.payer.Address(), wallet, mint))
		require.NoError(t, err)
		require.True(t, receipt.Succeeded())
	}
}

func TestMintToRejectsWrongAuthority(t *testing.T) {
	h := newHarness(t)
	authority := newKey(t)
	impostor := newKey(t)
	wallet := newKey(t).Address()
	mint := h.createMint(t, authority.Address())
	ata, _ := token.AssociatedAddress(wallet, mint)

	_, err := h.submit(t, nil, token.NewCreateAssociatedAccountInstruction(h.payer.Address(), wallet, mint))
	require.NoError(t, err)

	receipt, err := h.submit(t, []*crypto.PrivateKey{impostor}, token.NewMintToInstruction(mint, ata, impostor.Address(), 1))
	require.ErrorIs(t, err, token.ErrAuthorityMismatch)
	require.Equal(t, uint32(coreerrors.CodeAddressMismatch), receipt.Code)
	require.Zero(t, h.holding(t, ata).Amount)
}

func TestSetAuthorityToNoneFixesSupply(t *testing.T) {
	h := newHarness(t)
	authority := newKey(t)
	wallet := newKey(t).Address()
	mint := h.createMint(t, authority.Address())
	ata, _ := token.AssociatedAddress(wallet, mint)

	_, err := h.submit(t, []*crypto.PrivateKey{authority},
		token.NewCreateAssociatedAccountInstruction(h.payer.Address(), wallet, mint),
		token.NewSetAuthorityInstruction(mint, authority.Address(), nil),
	)
	require.NoError(t, err)

	_, err = h.submit(t, []*crypto.PrivateKey{authority}, token.NewMintToInstruction(mint, ata, authority.Address(), 1))
	if !errors.Is(err, token.ErrFixedSupply) {
		t.Fatalf("expected fixed supply error, got %v", err)
	}
}

func TestTransferMovesBalance(t *testing.T) {
	h := newHarness(t)
	authority := newKey(t)
	alice := newKey(t)
	bob := newKey(t).Address()
	mint := h.createMint(t, authority.Address())
	aliceATA, _ := token.AssociatedAddress(alice.Address(), mint)
	bobATA, _ := token.AssociatedAddress(bob, mint)

	_, err := h.submit(t, []*crypto.PrivateKey{authority},
		token.NewCreateAssociatedAccountInstruction(h.payer.Address(), alice.Address(), mint),
		token.NewCreateAssociatedAccountInstruction(h.payer.Address(), bob, mint),
		token.NewMintToInstruction(mint, aliceATA, authority.Address(), 10),
	)
	require.NoError(t, err)

	_, err = h.submit(t, []*crypto.PrivateKey{alice}, token.NewTransferInstruction(aliceATA, bobATA, alice.Address(), 4))
	require.NoError(t, err)
	require.Equal(t, uint64(6), h.holding(t, aliceATA).Amount)
	require.Equal(t, uint64(4), h.holding(t, bobATA).Amount)

	_, err = h.submit(t, []*crypto.PrivateKey{alice}, token.NewTransferInstruction(aliceATA, bobATA, alice.Address(), 7))
	require.ErrorIs(t, err, coreerrors.ErrInsufficientFunds)
}

func TestAccountLayoutSizes(t *testing.T) {
	mintData, err := (&token.Mint{Initialized: true, HasAuthority: true, Supply: 9}).MarshalBinary()
	require.NoError(t, err)
	require.Len(t, mintData, token.MintSize)

	accountData, err := (&token.Account{Initialized: true, Amount: 1}).MarshalBinary()
	require.NoError(t, err)
	require.Len(t, accountData, token.AccountSize)

	_, err = token.DecodeAccount(mintData)
	require.ErrorIs(t, err, coreerrors.ErrMalformedInput)
}
