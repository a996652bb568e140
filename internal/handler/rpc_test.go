package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/service"
)

type fakeSearcher struct {
	matches []model.SearchMatch
	err     error
	lastReq service.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req service.SearchRequest) ([]model.SearchMatch, error) {
	f.lastReq = req
	return f.matches, f.err
}

func newRPCRouter(search Searcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/mcp", NewRPCHandler(search, "kbase", "1.0.0").Handle)
	return engine
}

func postRPC(t *testing.T, engine *gin.Engine, body string) (int, rpcResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var resp rpcResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestRPCInitialize(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	code, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "kbase", info["name"])
}

func TestRPCToolsList(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	_, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	tools := result["tools"].([]interface{})
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]interface{})
	assert.Equal(t, toolName, tool["name"])
	schema := tool["inputSchema"].(map[string]interface{})
	assert.Equal(t, []interface{}{"query"}, schema["required"])
}

func TestRPCToolsCall(t *testing.T) {
	search := &fakeSearcher{matches: []model.SearchMatch{
		{ChunkID: "c1", FilePath: "a.md", Topic: "general", Score: 0.9, Text: "answer text"},
	}}
	engine := newRPCRouter(search)
	_, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_knowledge","arguments":{"query":"deploy","limit":3,"topic":"ops","min_score":0.5}}}`)
	require.Nil(t, resp.Error)

	assert.Equal(t, "deploy", search.lastReq.Query)
	assert.Equal(t, 3, search.lastReq.Limit)
	assert.Equal(t, "ops", search.lastReq.Topic)
	assert.InDelta(t, 0.5, search.lastReq.MinScore, 0.0001)

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]interface{})
	require.Len(t, content, 1)
	block := content[0].(map[string]interface{})
	assert.Equal(t, "text", block["type"])
	assert.Contains(t, block["text"], "answer text")
}

func TestRPCToolsCallMissingQuery(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	_, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"search_knowledge","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInvalidParams, resp.Error.Code)
}

func TestRPCToolsCallUnknownTool(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	_, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{"query":"x"}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInvalidParams, resp.Error.Code)
}

func TestRPCMethodNotFound(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	_, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":6,"method":"bogus/thing"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcMethodNotFound, resp.Error.Code)
}

func TestRPCInvalidVersion(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	_, resp := postRPC(t, engine, `{"jsonrpc":"1.0","id":7,"method":"initialize"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInvalidRequest, resp.Error.Code)
}

func TestRPCParseError(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	_, resp := postRPC(t, engine, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcParseError, resp.Error.Code)
}

func TestRPCNotificationNoBody(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestRPCInternalErrorOnSearchFailure(t *testing.T) {
	engine := newRPCRouter(&fakeSearcher{err: assert.AnError})
	_, resp := postRPC(t, engine, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"search_knowledge","arguments":{"query":"x"}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInternalError, resp.Error.Code)
}
