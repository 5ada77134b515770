// Package client talks to a node's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/integrations/index"
	"shiftchain/rpc"
)

// ErrNotFound is returned when the requested account or record does not exist.
var ErrNotFound = errors.New("client: not found")

// APIError is any other non-2xx answer.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %d %s (request %s)", e.Status, e.Message, e.RequestID)
}

type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Slot(ctx context.Context) (uint64, error) {
	var out rpc.SlotResult
	err := c.get(ctx, "/v1/slot", &out)
	return out.Slot, err
}

func (c *Client) Program(ctx context.Context) (rpc.ProgramResult, error) {
	var out rpc.ProgramResult
	err := c.get(ctx, "/v1/program", &out)
	return out, err
}

// MinimumBalance asks the node for the rent-exempt balance of space bytes.
func (c *Client) MinimumBalance(ctx context.Context, space int) (uint64, error) {
	var out rpc.RentResult
	err := c.get(ctx, "/v1/rent?space="+strconv.Itoa(space), &out)
	return out.Lamports, err
}

func (c *Client) Account(ctx context.Context, addr crypto.Address) (rpc.AccountResult, error) {
	var out rpc.AccountResult
	err := c.get(ctx, "/v1/accounts/"+addr.String(), &out)
	return out, err
}

func (c *Client) MintAuthority(ctx context.Context) (rpc.MintAuthorityResult, error) {
	var out rpc.MintAuthorityResult
	err := c.get(ctx, "/v1/mint-authority", &out)
	return out, err
}

func (c *Client) Employer(ctx context.Context, addr crypto.Address) (rpc.EmployerResult, error) {
	var out rpc.EmployerResult
	err := c.get(ctx, "/v1/employers/"+addr.String(), &out)
	return out, err
}

func (c *Client) Employee(ctx context.Context, addr crypto.Address) (rpc.EmployeeResult, error) {
	var out rpc.EmployeeResult
	err := c.get(ctx, "/v1/employees/"+addr.String(), &out)
	return out, err
}

func (c *Client) Shift(ctx context.Context, addr crypto.Address) (rpc.ShiftResult, error) {
	var out rpc.ShiftResult
	err := c.get(ctx, "/v1/shifts/"+addr.String(), &out)
	return out, err
}

// Settlements lists the newest settlements of a shift; limit 0 uses the
// server default.
func (c *Client) Settlements(ctx context.Context, shift crypto.Address, limit int) ([]index.Settlement, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/shifts/" + shift.String() + "/settlements"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []index.Settlement
	err := c.get(ctx, path, &out)
	return out, err
}

func (c *Client) Totals(ctx context.Context, owner crypto.Address) (index.Totals, error) {
	var out index.Totals
	err := c.get(ctx, "/v1/owners/"+owner.String()+"/totals", &out)
	return out, err
}

// Submit sends a signed transaction. A transaction that was evaluated but
// failed returns its receipt together with an error carrying the receipt's
// message.
func (c *Client) Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return c.submit(ctx, tx, false)
}

// Simulate evaluates tx without committing it.
func (c *Client) Simulate(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return c.submit(ctx, tx, true)
}

func (c *Client) submit(ctx context.Context, tx *types.Transaction, simulate bool) (*types.Receipt, error) {
	encoded, err := tx.Encode()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(rpc.SubmitRequest{Transaction: encoded})
	if err != nil {
		return nil, err
	}
	path := "/v1/transactions"
	if simulate {
		path += "?simulate=true"
	}
	var out rpc.SubmitResult
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if out.Receipt == nil {
		return nil, errors.New("client: response without receipt")
	}
	if !out.Receipt.Succeeded() {
		return out.Receipt, fmt.Errorf("client: transaction %s failed: %s", out.Receipt.TxHash, out.Receipt.Error)
	}
	return out.Receipt, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var apiErr rpc.ErrorResult
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error, RequestID: apiErr.RequestID}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
