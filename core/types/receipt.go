package types

// Receipt reports the outcome of one transaction. Code is zero on success.
type Receipt struct {
	TxHash string   `json:"txHash"`
	Slot   uint64   `json:"slot"`
	Code   uint32   `json:"code"`
	Error  string   `json:"error,omitempty"`
	Events []*Event `json:"events,omitempty"`
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Code == 0 && r.Error == ""
}
