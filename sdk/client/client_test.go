package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/rpc"
)

func TestClientDecodesResponses(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.Address()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/slot", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rpc.SlotResult{Slot: 42})
	})
	mux.HandleFunc("/v1/shifts/"+addr.String(), func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rpc.ShiftResult{Address: addr, Owner: addr, TotalRewards: 9})
	})
	mux.HandleFunc("/v1/employers/"+addr.String(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/owners/"+addr.String()+"/totals", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(rpc.ErrorResult{Error: "event index disabled", RequestID: "abc"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New(srv.URL + "/")
	ctx := context.Background()

	slot, err := c.Slot(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(42), slot)

	shift, err := c.Shift(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(9), shift.TotalRewards)

	_, err = c.Employer(ctx, addr)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.Totals(ctx, addr)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	require.Equal(t, "abc", apiErr.RequestID)
}

func TestSubmitReportsFailedReceipt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		var req rpc.SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, err := types.DecodeTransaction(req.Transaction)
		require.NoError(t, err)
		simulated := r.URL.Query().Get("simulate") == "true"
		receipt := &types.Receipt{TxHash: "0xabc"}
		if !simulated {
			receipt.Code, receipt.Error = 1, "assertion failed"
		}
		_ = json.NewEncoder(w).Encode(rpc.SubmitResult{Receipt: receipt, Simulated: simulated})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	tx := types.NewTransaction(1, types.Instruction{ProgramID: key.Address(), Accounts: []types.AccountMeta{types.Signer(key.Address())}})
	require.NoError(t, tx.Sign(key))

	c := New(srv.URL)
	receipt, err := c.Simulate(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())

	receipt, err = c.Submit(context.Background(), tx)
	require.Error(t, err)
	require.NotNil(t, receipt)
	require.Equal(t, uint32(1), receipt.Code)
}
