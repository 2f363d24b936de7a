package rpc

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sugawarayuuta/sonnet"
)

func TestHTTPClientEthCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("server: read request body: %v", err)
		}
		var req rpcRequest
		if err := sonnet.Unmarshal(raw, &req); err != nil {
			t.Fatalf("server: decode request: %v", err)
		}
		if req.Method != "eth_call" {
			t.Fatalf("unexpected method: %s", req.Method)
		}
		resp := rpcResponse{Result: "0x0102"}
		body, _ := sonnet.Marshal(resp)
		w.Write(body)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	out, err := c.EthCall(context.Background(), [20]byte{}, []byte{0xAA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hex.EncodeToString(out) != "0102" {
		t.Fatalf("got %x, want 0102", out)
	}
}

func TestHTTPClientEthCallSurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":-32000,"message":"execution reverted"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.EthCall(context.Background(), [20]byte{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestHTTPClientBlockNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := rpcResponse{Result: "0x10"}
		body, _ := sonnet.Marshal(resp)
		w.Write(body)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	n, err := c.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 16 {
		t.Fatalf("got %d, want 16", n)
	}
}
