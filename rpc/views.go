package rpc

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"shiftchain/core/types"
	"shiftchain/crypto"
	program "shiftchain/native/shift"
)

// SlotResult reports the node's current slot.
type SlotResult struct {
	Slot uint64 `json:"slot"`
}

// RentResult is the minimum balance that keeps an account of Space bytes
// alive.
type RentResult struct {
	Space    int    `json:"space"`
	Lamports uint64 `json:"lamports"`
}

// AccountResult is the raw form of any account.
type AccountResult struct {
	Address  crypto.Address `json:"address"`
	Owner    crypto.Address `json:"owner"`
	Lamports uint64         `json:"lamports"`
	Data     hexutil.Bytes  `json:"data"`
}

type MintAuthorityResult struct {
	Address crypto.Address `json:"address"`
	Bump    uint8          `json:"bump"`
}

type EmployerResult struct {
	Address              crypto.Address `json:"address"`
	Bump                 uint8          `json:"bump"`
	IsActive             bool           `json:"isActive"`
	Employees            uint16         `json:"employees"`
	MaxEmployees         uint16         `json:"maxEmployees"`
	StartSlot            uint64         `json:"startSlot"`
	EndSlot              uint64         `json:"endSlot"`
	SlotsPerShift        uint64         `json:"slotsPerShift"`
	BaseRatePerSlot      uint64         `json:"baseRatePerSlot"`
	InflationRatePerSlot uint64         `json:"inflationRatePerSlot"`
	TokenMint            crypto.Address `json:"tokenMint"`
	CollectionMint       crypto.Address `json:"collectionMint"`
}

type EmployeeResult struct {
	Address    crypto.Address `json:"address"`
	Bump       uint8          `json:"bump"`
	LastSlot   uint64         `json:"lastSlot"`
	TotalSlots uint64         `json:"totalSlots"`
	NFTMint    crypto.Address `json:"nftMint"`
}

type ShiftResult struct {
	Address      crypto.Address `json:"address"`
	Bump         uint8          `json:"bump"`
	Slot         uint64         `json:"slot"`
	TotalSlots   uint64         `json:"totalSlots"`
	TotalRewards uint64         `json:"totalRewards"`
	Owner        crypto.Address `json:"owner"`
}

// SubmitRequest carries a signed, RLP-encoded transaction.
type SubmitRequest struct {
	Transaction hexutil.Bytes `json:"transaction"`
}

// SubmitResult is returned for every evaluated transaction, successful or
// not; Receipt.Code is zero on success.
type SubmitResult struct {
	Receipt   *types.Receipt `json:"receipt"`
	Simulated bool           `json:"simulated,omitempty"`
}

// ErrorResult is the body of every non-2xx response.
type ErrorResult struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func accountResult(addr crypto.Address, acct *types.StoredAccount) AccountResult {
	return AccountResult{Address: addr, Owner: acct.Owner, Lamports: acct.Lamports, Data: acct.Data}
}

func mintAuthorityResult(addr crypto.Address, r *program.MintAuthority) MintAuthorityResult {
	return MintAuthorityResult{Address: addr, Bump: r.Bump}
}

func employerResult(addr crypto.Address, r *program.Employer) EmployerResult {
	return EmployerResult{
		Address:              addr,
		Bump:                 r.Bump,
		IsActive:             r.IsActive,
		Employees:            r.Employees,
		MaxEmployees:         r.MaxEmployees,
		StartSlot:            r.StartSlot,
		EndSlot:              r.EndSlot,
		SlotsPerShift:        r.SlotsPerShift,
		BaseRatePerSlot:      r.BaseRatePerSlot,
		InflationRatePerSlot: r.InflationRatePerSlot,
		TokenMint:            r.TokenMint,
		CollectionMint:       r.CollectionMint,
	}
}

func employeeResult(addr crypto.Address, r *program.Employee) EmployeeResult {
	return EmployeeResult{Address: addr, Bump: r.Bump, LastSlot: r.LastSlot, TotalSlots: r.TotalSlots, NFTMint: r.NFTMint}
}

func shiftResult(addr crypto.Address, r *program.Shift) ShiftResult {
	return ShiftResult{
		Address:      addr,
		Bump:         r.Bump,
		Slot:         r.Slot,
		TotalSlots:   r.TotalSlots,
		TotalRewards: r.TotalRewards,
		Owner:        r.Owner,
	}
}
