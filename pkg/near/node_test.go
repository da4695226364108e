package near_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcHandler func(params json.RawMessage) (interface{}, *rpcError)

// fakeNode is a JSON-RPC server standing in for a NEAR node. Query handlers
// are registered as "query/<request_type>".
type fakeNode struct {
	*httptest.Server

	t        *testing.T
	lock     sync.Mutex
	handlers map[string]rpcHandler
	calls    []string
}

func newFakeNode(t *testing.T) *fakeNode {
	node := &fakeNode{t: t, handlers: make(map[string]rpcHandler)}
	node.Server = httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(node.Close)
	return node
}

func (n *fakeNode) handle(method string, handler rpcHandler) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.handlers[method] = handler
}

func (n *fakeNode) called(method string) int {
	n.lock.Lock()
	defer n.lock.Unlock()
	count := 0
	for _, c := range n.calls {
		if c == method {
			count++
		}
	}
	return count
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		Id      uint64          `json:"id"`
	}
	require.NoError(n.t, json.NewDecoder(r.Body).Decode(&req))
	require.Equal(n.t, "2.0", req.Version)

	method := req.Method
	if method == "query" {
		var params struct {
			RequestType string `json:"request_type"`
		}
		require.NoError(n.t, json.Unmarshal(req.Params, &params))
		method = "query/" + params.RequestType
	}

	n.lock.Lock()
	n.calls = append(n.calls, method)
	handler, ok := n.handlers[method]
	n.lock.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.Id}
	if !ok {
		resp["error"] = rpcError{Code: -32601, Message: "Method not found", Data: method}
	} else {
		result, err := handler(req.Params)
		if err != nil {
			resp["error"] = err
		} else {
			resp["result"] = result
		}
	}

	w.Header().Set("Content-Type", "application/json")
	require.NoError(n.t, json.NewEncoder(w).Encode(resp))
}
