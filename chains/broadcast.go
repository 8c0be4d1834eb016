package chains

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sljivkov/fiatoracle/domain"
)

const broadcastCommitMethod = "broadcast_tx_commit"

// RPCRequest is a JSON-RPC 2.0 request to a CometBFT node.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// CommitResult is the outcome of broadcast_tx_commit against a CometBFT v0.38 node.
// When CheckTx rejects the transaction, Code, Codespace and Log describe the
// CheckTx failure; otherwise they come from tx_result.
type CommitResult struct {
	Hash        string
	Height      int64
	CheckTxCode uint32
	Code        uint32
	Codespace   string
	Log         string
	GasWanted   int64
	GasUsed     int64
}

// OK reports whether the transaction was committed and executed successfully.
func (r *CommitResult) OK() bool {
	return r.CheckTxCode == 0 && r.Code == 0
}

// Broadcaster submits signed transactions over the CometBFT JSON-RPC endpoint.
type Broadcaster struct {
	rpcURL string
	client *http.Client
}

// NewBroadcaster creates a broadcaster. A nil client gets a 60 second timeout,
// long enough to wait for the next block.
func NewBroadcaster(rpcURL string, client *http.Client) *Broadcaster {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &Broadcaster{
		rpcURL: rpcURL,
		client: client,
	}
}

// BroadcastCommit sends tx and blocks until the node reports it committed in a block.
// A non-zero result code is not an error; it is reported through CommitResult.
func (b *Broadcaster) BroadcastCommit(ctx context.Context, tx *SignedTx) (*CommitResult, error) {
	params := map[string]string{
		"tx": base64.StdEncoding.EncodeToString(tx.Bytes()),
	}

	result, err := b.call(ctx, broadcastCommitMethod, params)
	if err != nil {
		return nil, &domain.RPCError{Op: broadcastCommitMethod, Err: err}
	}

	res, err := parseCommitResult(result)
	if err != nil {
		return nil, &domain.RPCError{Op: broadcastCommitMethod, Err: err}
	}

	return res, nil
}

// call makes a JSON-RPC call and returns the raw result member.
func (b *Broadcaster) call(ctx context.Context, method string, params any) (gjson.Result, error) {
	body, err := json.Marshal(RPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.rpcURL, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("execute request: %w", err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}

	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, fmt.Errorf("node returned status %d with non-JSON body: %s",
			resp.StatusCode, truncate(respBody, 256))
	}

	if rpcErr := gjson.GetBytes(respBody, "error"); rpcErr.Exists() && rpcErr.Type != gjson.Null {
		return gjson.Result{}, fmt.Errorf("node error %d: %s %s",
			rpcErr.Get("code").Int(), rpcErr.Get("message").String(), rpcErr.Get("data").String())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("node returned status %d", resp.StatusCode)
	}

	result := gjson.GetBytes(respBody, "result")
	if !result.IsObject() {
		return gjson.Result{}, fmt.Errorf("response has no result")
	}

	return result, nil
}

func parseCommitResult(result gjson.Result) (*CommitResult, error) {
	checkTx := result.Get("check_tx")
	txResult := result.Get("tx_result")

	if !checkTx.Exists() && !txResult.Exists() {
		return nil, fmt.Errorf("result has neither check_tx nor tx_result")
	}

	res := &CommitResult{
		Hash:        result.Get("hash").String(),
		Height:      result.Get("height").Int(),
		CheckTxCode: uint32(checkTx.Get("code").Uint()),
	}

	source := txResult
	if res.CheckTxCode != 0 {
		source = checkTx
	}

	res.Code = uint32(source.Get("code").Uint())
	res.Codespace = source.Get("codespace").String()
	res.Log = source.Get("log").String()
	res.GasWanted = source.Get("gas_wanted").Int()
	res.GasUsed = source.Get("gas_used").Int()

	return res, nil
}
