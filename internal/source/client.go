package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is a minimal JSON-RPC 2.0 client for the fullnode endpoints this
// tool needs: the latest checkpoint number and the node's API version.
type Client struct {
	url string
	hc  *http.Client
}

// NewClient returns a fullnode client for the given RPC URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		hc:  &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("fullnode request %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fullnode request %s failed: status %s", method, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fullnode response %s unreadable: %w", method, err)
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("fullnode response %s unparsable: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("fullnode %s returned error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return json.Unmarshal(rpcResp.Result, result)
}

// LatestCheckpointSequenceNumber asks the fullnode for the newest checkpoint
// sequence number. The node encodes it as a JSON string.
func (c *Client) LatestCheckpointSequenceNumber(ctx context.Context) (uint64, error) {
	var raw string
	if err := c.call(ctx, "sui_getLatestCheckpointSequenceNumber", nil, &raw); err != nil {
		return 0, err
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fullnode returned malformed checkpoint number %q: %w", raw, err)
	}
	return seq, nil
}

// APIVersion reports the fullnode's RPC API version via rpc.discover.
func (c *Client) APIVersion(ctx context.Context) (string, error) {
	var discover struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	if err := c.call(ctx, "rpc.discover", nil, &discover); err != nil {
		return "", err
	}
	return discover.Info.Version, nil
}
