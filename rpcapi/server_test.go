package rpcapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
)

func newTestServer(t *testing.T) *Server {
	store, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	eng, err := engine.New(store)
	require.NoError(t, err)
	require.NoError(t, eng.Genesis(mesh.Treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))
	return New(eng, nil, nil, Options{})
}

func doRPC(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetRootReturnsEngineRoot(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(t, s, `{"jsonrpc":"2.0","method":"getRoot","id":1}`)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, s.engine.Root().String(), result["root"])
}

func TestGetBalanceForUnknownAddressIsZero(t *testing.T) {
	s := newTestServer(t)
	addr := mesh.BytesToAddress([]byte{42})
	body := `{"jsonrpc":"2.0","method":"getBalance","params":{"addr":"` + addr.String() + `"},"id":1}`
	rec := doRPC(t, s, body)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0", result["balance"])
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(t, s, `{"jsonrpc":"2.0","method":"no_such_method","id":1}`)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMissingJSONRPCVersionIsInvalidRequest(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(t, s, `{"method":"getRoot","id":1}`)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestMalformedJSONIsParseError(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(t, s, `{not json`)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestBatchRequestDispatchesEachCall(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(t, s, `[{"jsonrpc":"2.0","method":"getRoot","id":1},{"jsonrpc":"2.0","method":"getRoot","id":2}]`)

	var resps []response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resps))
	require.Len(t, resps, 2)
	assert.Nil(t, resps[0].Error)
	assert.Nil(t, resps[1].Error)
}

func TestGetPeerIDWithoutNodeReturnsError(t *testing.T) {
	s := newTestServer(t)
	rec := doRPC(t, s, `{"jsonrpc":"2.0","method":"get_peer_id","id":1}`)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
}
