package index

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// uint64Width is the number of decimal digits in math.MaxUint64.
const uint64Width = 20

// Uint64 stores a full-range uint64 as zero-padded decimal text. SQLite
// integers are signed, and the padding keeps ORDER BY and range filters
// numeric.
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return fmt.Sprintf("%0*d", uint64Width, uint64(u)), nil
}

func (u *Uint64) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case nil:
		*u = 0
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("index: negative uint64 column %d", v)
		}
		*u = Uint64(v)
		return nil
	default:
		return fmt.Errorf("index: cannot scan %T into Uint64", src)
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return fmt.Errorf("index: parse uint64 column: %w", err)
	}
	*u = Uint64(parsed)
	return nil
}
