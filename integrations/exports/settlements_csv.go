package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"strconv"
	"time"

	"shiftchain/integrations/index"
)

var settlementHeader = []string{
	"slot", "shift", "owner", "recipient", "processed", "skipped", "idle",
	"slots", "amount", "total_slots", "total_rewards", "recorded_at",
}

// SettlementsCSV builds a CSV export for the supplied settlements and returns
// the serialised data alongside a SHA-256 checksum of the payload.
func SettlementsCSV(entries []index.Settlement) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(settlementHeader); err != nil {
		return nil, "", err
	}
	for _, entry := range entries {
		record := []string{
			strconv.FormatUint(uint64(entry.Slot), 10),
			entry.Shift,
			entry.Owner,
			entry.Recipient,
			strconv.FormatUint(uint64(entry.Processed), 10),
			strconv.FormatUint(uint64(entry.Skipped), 10),
			strconv.FormatUint(uint64(entry.Idle), 10),
			strconv.FormatUint(uint64(entry.Slots), 10),
			strconv.FormatUint(uint64(entry.Amount), 10),
			strconv.FormatUint(uint64(entry.TotalSlots), 10),
			strconv.FormatUint(uint64(entry.TotalRewards), 10),
			recordedAt(entry),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	return checksummed(buffer.Bytes())
}

func recordedAt(entry index.Settlement) string {
	if entry.CreatedAt.IsZero() {
		return ""
	}
	return entry.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func checksummed(data []byte) ([]byte, string, error) {
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
