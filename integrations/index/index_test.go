package index

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shiftchain/core/events"
	"shiftchain/crypto"
)

func setupIndex(t *testing.T) *Index {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	idx, err := New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func addr(b byte) crypto.Address {
	return crypto.BytesToAddress([]byte{b})
}

func TestSettlementsByShiftAndOwner(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()
	shiftA, shiftB := addr(1), addr(2)
	ownerA, ownerB := addr(3), addr(4)

	idx.Emit(events.ShiftSettled{Shift: shiftA, Owner: ownerA, Slot: 10, Processed: 1, Slots: 10, Amount: 100})
	idx.Emit(events.ShiftSettled{Shift: shiftA, Owner: ownerA, Slot: 20, Processed: 1, Slots: 10, Amount: 150})
	idx.Emit(events.ShiftSettled{Shift: shiftB, Owner: ownerB, Slot: 15, Idle: 2})
	idx.Emit(events.ShiftInitialized{Shift: shiftA, Owner: ownerA})

	list, err := idx.Settlements(ctx, Filter{Shift: &shiftA})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, Uint64(20), list[0].Slot, "newest first")
	require.Equal(t, ownerA.String(), list[0].Owner)

	list, err = idx.Settlements(ctx, Filter{Owner: &ownerB})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, uint32(2), list[0].Idle)

	list, err = idx.Settlements(ctx, Filter{FromSlot: 15, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, Uint64(20), list[0].Slot)

	totals, err := idx.Totals(ctx, Filter{Owner: &ownerA})
	require.NoError(t, err)
	require.Equal(t, Totals{Batches: 2, Slots: 20, Amount: 250}, totals)

	empty, err := idx.Totals(ctx, Filter{Owner: &shiftB})
	require.NoError(t, err)
	require.Zero(t, empty)
}

func TestRegistrations(t *testing.T) {
	idx := setupIndex(t)
	employer := addr(9)
	idx.Emit(events.EmployeeRegistered{Employer: employer, Employee: addr(11), NFTMint: addr(21), Employees: 2})
	idx.Emit(events.EmployeeRegistered{Employer: employer, Employee: addr(10), NFTMint: addr(20), Employees: 1})
	// A duplicate employee violates the unique index and is dropped.
	idx.Emit(events.EmployeeRegistered{Employer: employer, Employee: addr(10), NFTMint: addr(20), Employees: 3})

	list, err := idx.Registrations(context.Background(), employer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, addr(20).String(), list[0].NFTMint)
	require.Equal(t, uint16(2), list[1].Position)
}

func TestHighBitAmountsRoundTrip(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()
	shift, owner := addr(1), addr(2)
	const big = uint64(1) << 63

	idx.Emit(events.ShiftSettled{Shift: shift, Owner: owner, Slot: 5, Processed: 1, Slots: 7, Amount: big, TotalRewards: math.MaxUint64})
	idx.Emit(events.ShiftSettled{Shift: shift, Owner: owner, Slot: big, Processed: 1, Slots: 3, Amount: 10})

	list, err := idx.Settlements(ctx, Filter{Shift: &shift})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, Uint64(big), list[0].Slot, "ordering is numeric across the sign bit")
	require.Equal(t, Uint64(big), list[1].Amount)
	require.Equal(t, Uint64(math.MaxUint64), list[1].TotalRewards)

	list, err = idx.Settlements(ctx, Filter{FromSlot: 6})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, Uint64(big), list[0].Slot)

	totals, err := idx.Totals(ctx, Filter{Owner: &owner})
	require.NoError(t, err)
	require.Equal(t, Totals{Batches: 2, Slots: 10, Amount: big + 10}, totals)
}

func TestTotalsOverflowIsReported(t *testing.T) {
	idx := setupIndex(t)
	owner := addr(2)
	idx.Emit(events.ShiftSettled{Shift: addr(1), Owner: owner, Slot: 1, Amount: math.MaxUint64})
	idx.Emit(events.ShiftSettled{Shift: addr(1), Owner: owner, Slot: 2, Amount: 1})

	_, err := idx.Totals(context.Background(), Filter{Owner: &owner})
	require.ErrorIs(t, err, ErrTotalsOverflow)
}
