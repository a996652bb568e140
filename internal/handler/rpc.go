package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/service"
)

const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603

	protocolVersion = "2024-11-05"
	toolName        = "search_knowledge"
)

type Searcher interface {
	Search(ctx context.Context, req service.SearchRequest) ([]model.SearchMatch, error)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// RPCHandler serves the agent-facing endpoint: JSON-RPC 2.0 over a single
// POST route, exposing one retrieval tool.
type RPCHandler struct {
	search  Searcher
	name    string
	version string
}

func NewRPCHandler(search Searcher, name, version string) *RPCHandler {
	return &RPCHandler{search: search, name: name, version: version}
}

func (h *RPCHandler) Handle(c *gin.Context) {
	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: "Parse error"}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: rpcInvalidRequest, Message: "Invalid Request"}})
		return
	}
	// notifications carry no id and expect no response body
	if strings.HasPrefix(req.Method, "notifications/") {
		c.Status(http.StatusAccepted)
		return
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = h.initializeResult()
	case "tools/list":
		resp.Result = gin.H{"tools": []gin.H{searchToolSpec()}}
	case "tools/call":
		result, rpcErr := h.callTool(c, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
	case "resources/list":
		resp.Result = gin.H{"resources": []gin.H{}}
	case "prompts/list":
		resp.Result = gin.H{"prompts": []gin.H{}}
	default:
		resp.Error = &rpcError{Code: rpcMethodNotFound, Message: "Method not found: " + req.Method}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RPCHandler) initializeResult() gin.H {
	return gin.H{
		"protocolVersion": protocolVersion,
		"capabilities": gin.H{
			"tools": gin.H{},
		},
		"serverInfo": gin.H{
			"name":    h.name,
			"version": h.version,
		},
	}
}

func searchToolSpec() gin.H {
	return gin.H{
		"name":        toolName,
		"description": "Semantic search over the indexed knowledge base. Returns the most relevant document chunks for a natural language query.",
		"inputSchema": gin.H{
			"type": "object",
			"properties": gin.H{
				"query": gin.H{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": gin.H{
					"type":        "number",
					"description": "Maximum number of results (default 5, max 20)",
				},
				"topic": gin.H{
					"type":        "string",
					"description": "Restrict results to one topic (top-level folder)",
				},
				"min_score": gin.H{
					"type":        "number",
					"description": "Minimum similarity score between 0 and 1 (default 0.7)",
				},
			},
			"required": []string{"query"},
		},
	}
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments toolCallSearch `json:"arguments"`
}

type toolCallSearch struct {
	Query    string  `json:"query"`
	Limit    int     `json:"limit"`
	Topic    string  `json:"topic"`
	MinScore float32 `json:"min_score"`
}

func (h *RPCHandler) callTool(c *gin.Context, raw json.RawMessage) (interface{}, *rpcError) {
	var params toolCallParams
	if len(raw) == 0 || json.Unmarshal(raw, &params) != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: "Invalid params"}
	}
	if params.Name != toolName {
		return nil, &rpcError{Code: rpcInvalidParams, Message: "Unknown tool: " + params.Name}
	}
	if params.Arguments.Query == "" {
		return nil, &rpcError{Code: rpcInvalidParams, Message: "query is required"}
	}

	ctx := c.Request.Context()
	matches, err := h.search.Search(ctx, service.SearchRequest{
		Query:    params.Arguments.Query,
		Limit:    params.Arguments.Limit,
		Topic:    params.Arguments.Topic,
		MinScore: params.Arguments.MinScore,
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return nil, &rpcError{Code: rpcInternalError, Message: "search failed"}
	}
	return gin.H{
		"content": []gin.H{
			{
				"type": "text",
				"text": service.FormatMatches(matches),
			},
		},
	}, nil
}
