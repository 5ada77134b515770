package shift

import (
	"errors"
	"testing"

	"shiftchain/crypto"
)

func TestInitializeEmployerKeepsExplicitZero(t *testing.T) {
	zero := uint16(0)
	start := uint64(77)
	cmd := InitializeEmployer{Params: EmployerParams{
		Bump:           250,
		TokenMint:      crypto.BytesToAddress([]byte{1}),
		CollectionMint: crypto.BytesToAddress([]byte{2}),
		MaxEmployees:   &zero,
		StartSlot:      &start,
	}}
	data, err := EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != byte(TagInitializeEmployer) {
		t.Fatalf("tag %d", data[0])
	}
	decoded, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	params := decoded.(InitializeEmployer).Params
	if params.MaxEmployees == nil || *params.MaxEmployees != 0 {
		t.Fatalf("explicit zero lost: %v", params.MaxEmployees)
	}
	if params.StartSlot == nil || *params.StartSlot != 77 {
		t.Fatalf("start slot %v", params.StartSlot)
	}
	if params.MaxShifts != nil || params.SlotsPerShift != nil || params.BaseRatePerSlot != nil {
		t.Fatalf("absent options decoded as present: %+v", params)
	}
	if params.Bump != 250 || params.TokenMint != cmd.Params.TokenMint {
		t.Fatalf("unexpected params %+v", params)
	}
}

func TestDecodeCommand(t *testing.T) {
	owner := crypto.BytesToAddress([]byte{9})
	data, err := EncodeCommand(InitializeShift{Bump: 1, Slot: 5, Owner: owner})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cmd, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := cmd.(InitializeShift); got.Owner != owner || got.Slot != 5 || got.Bump != 1 {
		t.Fatalf("unexpected command %+v", got)
	}

	data, err = EncodeCommand(Accrue{NumberOfEmployees: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cmd, err = DecodeCommand(data)
	if err != nil || cmd.(Accrue).NumberOfEmployees != 3 {
		t.Fatalf("decode accrue: %v %+v", err, cmd)
	}
}

func TestDecodeCommandRejectsMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":         nil,
		"unknown tag":   {0xff},
		"test payload":  {byte(TagTest), 0x01},
		"truncated":     {byte(TagInitializeShift), 0xc3, 0x01},
		"trailing data": append(mustEncode(t, CreateShift{Bump: 1}), 0x00),
	}
	for name, data := range cases {
		if _, err := DecodeCommand(data); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("%s: expected malformed input, got %v", name, err)
		}
	}
}

func TestEmployerOptionBits(t *testing.T) {
	wire := &employerWire{Present: 0x80}
	if _, err := wire.params(); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}

func mustEncode(t *testing.T, cmd Command) []byte {
	t.Helper()
	data, err := EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}
