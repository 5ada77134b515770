package exports

import (
	"bytes"
	"encoding/json"

	"shiftchain/integrations/index"
)

// SettlementsJSONL builds a JSON Lines export for the supplied settlements and
// returns the serialised payload alongside a checksum.
func SettlementsJSONL(entries []index.Settlement) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return nil, "", err
		}
	}
	return checksummed(buffer.Bytes())
}
