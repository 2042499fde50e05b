package browserworker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// rpcRequest is one JSON-RPC-style call sent to the headless-browser
// control process, matching the teacher's exchange adapters' envelope
// shape for a websocket control channel.
type rpcRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// RPCClient is a single persistent websocket connection to the headless
// browser control process. All navigate/extract/switch/observe calls are
// funneled through the owning Worker's FIFO queue, so the connection
// itself never needs to multiplex concurrent requests.
type RPCClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
	next int64
}

// DialRPC opens the control connection. It is called once at process
// startup, the same lifecycle as the browser worker itself.
func DialRPC(ctx context.Context, url string) (*RPCClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial browser control %s: %w", url, err)
	}
	return &RPCClient{conn: conn}, nil
}

// Call sends method with params and decodes the result into out. The
// caller's context deadline governs the read; there is no retry, matching
// the worker's "isolate for one decision cycle" policy.
func (c *RPCClient) Call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	id := c.next

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params for %s: %w", method, err)
	}
	req := rpcRequest{ID: id, Method: method, Params: raw}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		c.conn.SetReadDeadline(deadline)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write rpc request %s: %w", method, err)
	}

	var resp rpcResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("read rpc response for %s: %w", method, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("browser control %s: %s", method, resp.Error)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("unmarshal result for %s: %w", method, err)
		}
	}
	return nil
}

// Close closes the underlying connection at process shutdown.
func (c *RPCClient) Close() error {
	return c.conn.Close()
}
