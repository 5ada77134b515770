package metadata

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/system"
	"shiftchain/native/token"
)

const (
	tagCreateMetadata byte = iota
	tagVerifyCollection
)

type createArgs struct {
	UpdateAuthority crypto.Address
	Collection      *crypto.Address `rlp:"nil"`
}

// NewCreateMetadataInstruction registers metadata for mint. The mint
// authority must sign; payer funds the record.
func NewCreateMetadataInstruction(mint, mintAuthority, payer, updateAuthority crypto.Address, collection *crypto.Address) types.Instruction {
	record, _ := Address(mint)
	data, err := rlp.EncodeToBytes(&createArgs{UpdateAuthority: updateAuthority, Collection: collection})
	if err != nil {
		panic(fmt.Sprintf("metadata: encode instruction: %v", err))
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.Writable(record),
			types.ReadOnly(mint),
			types.Signer(mintAuthority),
			types.SignerWritable(payer),
			types.ReadOnly(system.ProgramID),
		},
		Data: append([]byte{tagCreateMetadata}, data...),
	}
}

// NewVerifyCollectionInstruction marks the collection claim of mint as
// verified. The authority of the collection mint must sign.
func NewVerifyCollectionInstruction(mint, collectionMint, collectionAuthority crypto.Address) types.Instruction {
	record, _ := Address(mint)
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.Writable(record),
			types.ReadOnly(collectionMint),
			types.Signer(collectionAuthority),
		},
		Data: []byte{tagVerifyCollection},
	}
}

// Load decodes the registry record held by acct.
func Load(acct *types.Account) (*Metadata, error) {
	if acct.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s is not a metadata record", coreerrors.ErrWrongOwner, acct.Address)
	}
	m := new(Metadata)
	if err := m.UnmarshalBinary(acct.Data); err != nil {
		return nil, err
	}
	if !m.Initialized {
		return nil, fmt.Errorf("%w: metadata %s", coreerrors.ErrNotInitialized, acct.Address)
	}
	return m, nil
}

// Program is the runtime entry point of the registry.
type Program struct{}

func New() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }

func (p *Program) Execute(host runtime.Host, accounts []*types.Account, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty metadata instruction", coreerrors.ErrMalformedInput)
	}
	switch data[0] {
	case tagCreateMetadata:
		var args createArgs
		if err := rlp.DecodeBytes(data[1:], &args); err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrMalformedInput, err)
		}
		if len(accounts) < 4 {
			return fmt.Errorf("%w: create metadata needs 4 accounts", coreerrors.ErrMalformedInput)
		}
		return p.create(host, accounts[0], accounts[1], accounts[2], accounts[3], args)
	case tagVerifyCollection:
		if len(accounts) < 3 {
			return fmt.Errorf("%w: verify collection needs 3 accounts", coreerrors.ErrMalformedInput)
		}
		return p.verify(accounts[0], accounts[1], accounts[2])
	default:
		return fmt.Errorf("%w: unknown metadata instruction %d", coreerrors.ErrMalformedInput, data[0])
	}
}

func (p *Program) create(host runtime.Host, record, mintAcct, authority, payer *types.Account, args createArgs) error {
	expected, bump := Address(mintAcct.Address)
	if record.Address != expected {
		return fmt.Errorf("%w: %s", ErrNotMetadata, record.Address)
	}
	mint, err := token.LoadMint(mintAcct)
	if err != nil {
		return err
	}
	if !mint.HasAuthority || mint.Authority != authority.Address {
		return token.ErrAuthorityMismatch
	}
	if !authority.Signer {
		return fmt.Errorf("%w: mint authority %s", coreerrors.ErrMissingSignature, authority.Address)
	}
	signer := append(seeds(mintAcct.Address), []byte{bump})
	create := system.NewCreateAccountInstruction(payer.Address, record.Address, host.MinimumBalance(Size), Size, ProgramID)
	if err := host.Invoke(create, signer); err != nil {
		return err
	}
	m := &Metadata{
		Initialized:     true,
		Mint:            mintAcct.Address,
		UpdateAuthority: args.UpdateAuthority,
	}
	if args.Collection != nil {
		m.HasCollection = true
		m.CollectionKey = *args.Collection
	}
	record.Data, err = m.MarshalBinary()
	return err
}

func (p *Program) verify(record, collectionMint, authority *types.Account) error {
	m, err := Load(record)
	if err != nil {
		return err
	}
	if !m.HasCollection {
		return ErrNoCollection
	}
	if m.CollectionKey != collectionMint.Address {
		return ErrCollectionMismatch
	}
	collection, err := token.LoadMint(collectionMint)
	if err != nil {
		return err
	}
	if !collection.HasAuthority || collection.Authority != authority.Address {
		return token.ErrAuthorityMismatch
	}
	if !authority.Signer {
		return fmt.Errorf("%w: collection authority %s", coreerrors.ErrMissingSignature, authority.Address)
	}
	m.CollectionVerified = true
	record.Data, err = m.MarshalBinary()
	return err
}
