// Package index keeps a queryable SQLite history of committed shift events.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shiftchain/core/events"
	"shiftchain/crypto"
)

// ErrTotalsOverflow reports an aggregate that does not fit in a uint64.
var ErrTotalsOverflow = errors.New("index: totals overflow uint64")

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Settlement is one committed accrual batch.
type Settlement struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Shift        string    `gorm:"size:80;index" json:"shift"`
	Owner        string    `gorm:"size:80;index" json:"owner"`
	Employer     string    `gorm:"size:80" json:"employer"`
	Recipient    string    `gorm:"size:80" json:"recipient"`
	Slot         Uint64    `gorm:"type:text;index" json:"slot"`
	Processed    uint32    `json:"processed"`
	Skipped      uint32    `json:"skipped"`
	Idle         uint32    `json:"idle"`
	Slots        Uint64    `gorm:"type:text" json:"slots"`
	Amount       Uint64    `gorm:"type:text" json:"amount"`
	TotalSlots   Uint64    `gorm:"type:text" json:"totalSlots"`
	TotalRewards Uint64    `gorm:"type:text" json:"totalRewards"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Registration is one employee record allocated against an employer.
type Registration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Employer  string    `gorm:"size:80;index" json:"employer"`
	Employee  string    `gorm:"size:80;uniqueIndex" json:"employee"`
	NFTMint   string    `gorm:"size:80" json:"nftMint"`
	Position  uint16    `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows settlement queries. Zero fields match everything.
type Filter struct {
	Shift    *crypto.Address
	Owner    *crypto.Address
	FromSlot uint64
	Limit    int
}

// Totals aggregates settlements.
type Totals struct {
	Batches uint64 `json:"batches"`
	Slots   uint64 `json:"slots"`
	Amount  uint64 `json:"amount"`
}

// Index implements events.Emitter. Write failures are logged and dropped;
// the ledger remains the source of truth.
type Index struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open creates or opens the SQLite database at path.
func Open(path string, log *slog.Logger) (*Index, error) {
	if path == "" {
		return nil, errors.New("index: empty path")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	return New(db, log)
}

// New migrates the schema on db.
func New(db *gorm.DB, log *slog.Logger) (*Index, error) {
	if err := db.AutoMigrate(&Settlement{}, &Registration{}); err != nil {
		return nil, fmt.Errorf("index: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Index{db: db, logger: log.With("component", "index")}, nil
}

func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (i *Index) Emit(e events.Event) {
	var err error
	switch evt := e.(type) {
	case events.ShiftSettled:
		err = i.db.Create(&Settlement{
			Shift:        evt.Shift.String(),
			Owner:        evt.Owner.String(),
			Employer:     evt.Employer.String(),
			Recipient:    evt.Recipient.String(),
			Slot:         Uint64(evt.Slot),
			Processed:    evt.Processed,
			Skipped:      evt.Skipped,
			Idle:         evt.Idle,
			Slots:        Uint64(evt.Slots),
			Amount:       Uint64(evt.Amount),
			TotalSlots:   Uint64(evt.TotalSlots),
			TotalRewards: Uint64(evt.TotalRewards),
		}).Error
	case events.EmployeeRegistered:
		err = i.db.Create(&Registration{
			Employer: evt.Employer.String(),
			Employee: evt.Employee.String(),
			NFTMint:  evt.NFTMint.String(),
			Position: evt.Employees,
		}).Error
	default:
		return
	}
	if err != nil {
		i.logger.Error("index write failed", "event", e.EventType(), "error", err)
	}
}

// Settlements returns matching settlements, newest first.
func (i *Index) Settlements(ctx context.Context, f Filter) ([]Settlement, error) {
	q := i.scope(ctx, f)
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	var out []Settlement
	if err := q.Order("slot desc, id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Totals sums every settlement matching f, ignoring its limit. Sums are
// computed in Go so that a total past math.MaxUint64 is reported instead of
// wrapping.
func (i *Index) Totals(ctx context.Context, f Filter) (Totals, error) {
	rows, err := i.scope(ctx, f).Select("slots, amount").Rows()
	if err != nil {
		return Totals{}, err
	}
	defer rows.Close()
	var totals Totals
	for rows.Next() {
		var slots, amount Uint64
		if err := rows.Scan(&slots, &amount); err != nil {
			return Totals{}, err
		}
		var slotsCarry, amountCarry uint64
		totals.Slots, slotsCarry = bits.Add64(totals.Slots, uint64(slots), 0)
		totals.Amount, amountCarry = bits.Add64(totals.Amount, uint64(amount), 0)
		if slotsCarry != 0 || amountCarry != 0 {
			return Totals{}, ErrTotalsOverflow
		}
		totals.Batches++
	}
	if err := rows.Err(); err != nil {
		return Totals{}, err
	}
	return totals, nil
}

// Registrations lists the employees registered against employer in order.
func (i *Index) Registrations(ctx context.Context, employer crypto.Address) ([]Registration, error) {
	var out []Registration
	err := i.db.WithContext(ctx).
		Where("employer = ?", employer.String()).
		Order("position asc").
		Find(&out).Error
	return out, err
}

func (i *Index) scope(ctx context.Context, f Filter) *gorm.DB {
	q := i.db.WithContext(ctx).Model(&Settlement{})
	if f.Shift != nil {
		q = q.Where("shift = ?", f.Shift.String())
	}
	if f.Owner != nil {
		q = q.Where("owner = ?", f.Owner.String())
	}
	if f.FromSlot > 0 {
		q = q.Where("slot >= ?", Uint64(f.FromSlot))
	}
	return q
}
