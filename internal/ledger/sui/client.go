// internal/ledger/sui/client.go
package sui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/ledger"
)

const defaultRequestTimeout = 30 * time.Second

// Client is a JSON-RPC client for a Sui fullnode implementing the
// ledger.Ledger interface. One instance is constructed at process start and
// injected into consumers; it holds no mutable state beyond the request
// counter.
type Client struct {
	endpoint   string
	httpClient *http.Client
	signer     *Signer
	logger     *zap.Logger
	requestID  atomic.Uint64
}

// NewClient creates a fullnode client. The signer may be nil for read-only
// use; SubmitMoveCall requires it.
func NewClient(endpoint string, signer *Signer, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		signer:     signer,
		logger:     logger.Named("sui"),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC round trip. The result is decoded with
// json.Number enabled so integer fields survive without float conversion.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned HTTP %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if len(rpcResp.Result) == 0 || bytes.Equal(rpcResp.Result, []byte("null")) {
		return fmt.Errorf("%s returned no result", method)
	}

	dec := json.NewDecoder(bytes.NewReader(rpcResp.Result))
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

type getObjectResult struct {
	Data  *objectData  `json:"data"`
	Error *objectError `json:"error"`
}

type objectData struct {
	ObjectID string         `json:"objectId"`
	Content  *objectContent `json:"content"`
}

type objectContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

// ReadObject implements ledger.Ledger.
func (c *Client) ReadObject(ctx context.Context, objectID string) (*ledger.Object, error) {
	params := []any{objectID, map[string]bool{"showContent": true, "showType": true}}

	var res getObjectResult
	if err := c.call(ctx, "sui_getObject", params, &res); err != nil {
		return nil, err
	}

	if res.Error != nil {
		switch res.Error.Code {
		case "notExists", "deleted":
			return nil, &ledger.NotFoundError{ObjectID: objectID, Detail: res.Error.Code}
		default:
			return nil, fmt.Errorf("failed to read object %s: %s", objectID, res.Error.Code)
		}
	}
	if res.Data == nil || res.Data.Content == nil {
		return nil, &ledger.NotFoundError{ObjectID: objectID, Detail: "empty object response"}
	}

	return &ledger.Object{
		ObjectID: res.Data.ObjectID,
		Type:     res.Data.Content.Type,
		Fields:   res.Data.Content.Fields,
	}, nil
}

type moveCallResult struct {
	TxBytes string `json:"txBytes"`
}

type executeResult struct {
	Digest  string     `json:"digest"`
	Effects *txEffects `json:"effects"`
	Events  []txEvent  `json:"events"`
}

type txEffects struct {
	Status txStatus `json:"status"`
}

type txStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type txEvent struct {
	Type       string         `json:"type"`
	ParsedJSON map[string]any `json:"parsedJson"`
}

// SubmitMoveCall implements ledger.Ledger: build the transaction block via
// the node, sign it locally and execute it, waiting for local execution so
// effects and events are available in the response.
func (c *Client) SubmitMoveCall(ctx context.Context, call ledger.MoveCall) (*ledger.TransactionResult, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("no signing key configured")
	}

	typeArgs := call.TypeArguments
	if typeArgs == nil {
		typeArgs = []string{}
	}
	args := call.Arguments
	if args == nil {
		args = []any{}
	}

	buildParams := []any{
		c.signer.Address(),
		call.PackageID,
		call.Module,
		call.Function,
		typeArgs,
		args,
		nil, // gas object, chosen by the node
		strconv.FormatUint(call.GasBudget, 10),
	}

	var built moveCallResult
	if err := c.call(ctx, "unsafe_moveCall", buildParams, &built); err != nil {
		return nil, fmt.Errorf("failed to build move call %s::%s: %w", call.Module, call.Function, err)
	}

	rawTx, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction bytes: %w", err)
	}
	signature := c.signer.SignTransactionBytes(rawTx)

	execParams := []any{
		built.TxBytes,
		[]string{signature},
		map[string]bool{"showEffects": true, "showEvents": true},
		"WaitForLocalExecution",
	}

	var executed executeResult
	if err := c.call(ctx, "sui_executeTransactionBlock", execParams, &executed); err != nil {
		return nil, fmt.Errorf("failed to execute move call %s::%s: %w", call.Module, call.Function, err)
	}

	result := &ledger.TransactionResult{Digest: executed.Digest}
	if executed.Effects != nil {
		result.Status = executed.Effects.Status.Status
		result.Error = executed.Effects.Status.Error
	}
	for _, ev := range executed.Events {
		result.Events = append(result.Events, ledger.Event{
			Type:       ev.Type,
			ParsedJSON: ev.ParsedJSON,
		})
	}

	c.logger.Debug("Executed move call",
		zap.String("module", call.Module),
		zap.String("function", call.Function),
		zap.String("digest", result.Digest),
		zap.String("status", result.Status))

	return result, nil
}
