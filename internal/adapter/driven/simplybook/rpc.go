package simplybook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SlotSource = (*RPCSlotSource)(nil)

// rpcRequest is the JSON-RPC 2.0 body sent to the v1 API.
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int            `json:"id"`
}

// rpcResponse is a JSON-RPC 2.0 response. Result is left raw because its
// shape depends on the method.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     any             `json:"id"`
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// decodeRPCError converts a generically decoded error member.
func decodeRPCError(v any) error {
	e := &rpcError{Message: "unknown error"}
	switch t := v.(type) {
	case map[string]any:
		if n, ok := t["code"].(json.Number); ok {
			if code, err := n.Int64(); err == nil {
				e.Code = int(code)
			}
		}
		if msg, ok := t["message"].(string); ok && msg != "" {
			e.Message = msg
		}
	case string:
		if t != "" {
			e.Message = t
		}
	}
	return e
}

// callRPC posts one JSON-RPC request through fetcher and returns the raw
// response body.
func callRPC(ctx context.Context, fetcher *Fetcher, endpoint, method string, params map[string]any, id int) ([]byte, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return nil, &model.UpstreamError{Err: fmt.Errorf("marshaling rpc request: %w", err)}
	}

	return fetcher.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// RPCSlotSource reads availability through getServiceAvailableTimeIntervals
// on the v1 JSON-RPC API.
type RPCSlotSource struct {
	fetcher  *Fetcher
	endpoint string
}

// NewRPCSlotSource creates a slot source posting to the API root of baseURL.
func NewRPCSlotSource(fetcher *Fetcher, baseURL string) (*RPCSlotSource, error) {
	endpoint, err := endpointURL(baseURL, "/")
	if err != nil {
		return nil, err
	}
	return &RPCSlotSource{fetcher: fetcher, endpoint: endpoint}, nil
}

// FetchSlots returns the available intervals of providerID for serviceID
// within window.
func (s *RPCSlotSource) FetchSlots(ctx context.Context, serviceID, providerID int, window model.DateWindow) ([]model.DayRecord, error) {
	body, err := callRPC(ctx, s.fetcher, s.endpoint, "getServiceAvailableTimeIntervals", map[string]any{
		"dateFrom": window.FromString(),
		"dateTo":   window.ToString(),
		"eventId":  serviceID,
		"unitId":   providerID,
		"count":    1,
	}, 2)
	if err != nil {
		return nil, fmt.Errorf("fetching intervals for service %d provider %d: %w", serviceID, providerID, err)
	}

	return DecodeDays(body)
}
