package types

import "shiftchain/crypto"

// AccountMeta describes how an instruction uses one account.
type AccountMeta struct {
	Address  crypto.Address
	Signer   bool
	Writable bool
}

// Instruction is one program call inside a transaction.
type Instruction struct {
	ProgramID crypto.Address
	Accounts  []AccountMeta
	Data      []byte
}

func ReadOnly(addr crypto.Address) AccountMeta {
	return AccountMeta{Address: addr}
}

func Writable(addr crypto.Address) AccountMeta {
	return AccountMeta{Address: addr, Writable: true}
}

func Signer(addr crypto.Address) AccountMeta {
	return AccountMeta{Address: addr, Signer: true}
}

func SignerWritable(addr crypto.Address) AccountMeta {
	return AccountMeta{Address: addr, Signer: true, Writable: true}
}
