// Package rpc is the boundary between the worker and the chain: a
// request/response eth_call client for the Refresher's batched pool-state
// reads, and a WebSocket client for the pending-tx sequencer feed. JSON
// encoding uses sonnet, matching the teacher's own choice for fast
// unmarshaling of exchange wire data.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/sugawarayuuta/sonnet"

	"fulcrum/ferr"
)

// Client is the read-side RPC boundary the Refresher drives. Modeled as an
// interface so refresher tests can stub chain responses without a live
// endpoint.
type Client interface {
	// EthCall performs a read-only contract call against to, with the
	// given ABI-encoded calldata, and returns the raw ABI-encoded result.
	EthCall(ctx context.Context, to [20]byte, data []byte) ([]byte, error)
	// BlockNumber returns the current chain head height.
	BlockNumber(ctx context.Context) (uint64, error)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type callObject struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// HTTPClient is a Client backed by a single JSON-RPC HTTP endpoint.
type HTTPClient struct {
	Endpoint string
	HTTP     *http.Client

	nextID uint64
}

// NewHTTPClient builds an HTTPClient against endpoint using http.DefaultClient.
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{Endpoint: endpoint, HTTP: http.DefaultClient}
}

func (c *HTTPClient) do(ctx context.Context, method string, params []any) (string, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	}
	body, err := sonnet.Marshal(req)
	if err != nil {
		return "", ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: encode request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: %s: %v", method, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: read response: %v", err))
	}

	var parsed rpcResponse
	if err := sonnet.Unmarshal(raw, &parsed); err != nil {
		return "", ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: decode response: %v", err))
	}
	if parsed.Error != nil {
		return "", ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: %s: %s", method, parsed.Error.Message))
	}
	return parsed.Result, nil
}

// EthCall implements Client.
func (c *HTTPClient) EthCall(ctx context.Context, to [20]byte, data []byte) ([]byte, error) {
	call := callObject{
		To:   "0x" + hex.EncodeToString(to[:]),
		Data: "0x" + hex.EncodeToString(data),
	}
	result, err := c.do(ctx, "eth_call", []any{call, "latest"})
	if err != nil {
		return nil, err
	}
	out, err := hex.DecodeString(trim0x(result))
	if err != nil {
		return nil, ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: eth_call returned non-hex result: %v", err))
	}
	return out, nil
}

// BlockNumber implements Client.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.do(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(trim0x(result), 16, 64)
	if err != nil {
		return 0, ferr.New(ferr.RpcFailure, fmt.Sprintf("rpc: bad block number %q: %v", result, err))
	}
	return n, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
