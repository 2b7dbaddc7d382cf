package rpcapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/gossip"
	"github.com/ledgerless/ledgerless/log"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/metrics"
	"github.com/ledgerless/ledgerless/msgindex"
)

var logger = log.WithContext("pkg", "rpcapi")

var rpcRequestsTotal = metrics.LazyLoadCounterVec("rpc_requests_total", []string{"method"})

// submitDedupSize bounds how many recently submitted msg_ids the
// server remembers, mirroring the gossip fabric's own dedup cache so
// a resubmitted message is rejected at the RPC edge rather than
// burning a state-engine validation pass.
const submitDedupSize = 65536

// Options configures the RPC surface's HTTP-level behavior. Everything
// domain-specific (what a node can answer) comes from Engine/Node.
type Options struct {
	AllowedOrigins string
}

// Server is the query/RPC surface (C7): a single JSON-RPC 2.0 POST
// endpoint backed by a node's state engine, gossip node and message
// index. No global singletons — every RPC surface a process exposes
// is instantiated explicitly around one Engine/Node pair, so a test
// can run several nodes in one process.
type Server struct {
	engine *engine.Engine
	node   *gossip.Node
	index  *msgindex.Index
	opts   Options
	dedup  *lru.Cache
	feed   *rootsFeed
}

// New builds a Server. idx may be nil if the node runs without the
// auxiliary message index; accepted messages are then not recorded.
// No RPC method reads the index.
func New(eng *engine.Engine, node *gossip.Node, idx *msgindex.Index, opts Options) *Server {
	c, err := lru.New(submitDedupSize)
	if err != nil {
		panic(err)
	}
	feed := newRootsFeed(func() (mesh.Hash, uint64) { return eng.Root(), eng.Tree().Version() })
	return &Server{engine: eng, node: node, index: idx, opts: opts, dedup: c, feed: feed}
}

// Handler returns the http.Handler to mount, CORS-wrapped the same
// way the rest of this repository's HTTP surfaces are.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Path("/").Methods(http.MethodPost).HandlerFunc(s.serveHTTP)
	router.Path("/roots/v1").Methods(http.MethodGet).HandlerFunc(s.handleSubscribeRoots)

	origins := []string{"*"}
	if s.opts.AllowedOrigins != "" {
		origins = strings.Split(s.opts.AllowedOrigins, ",")
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(router)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		writeJSON(w, errResponse(nil, codeParseError, "failed to read request body", nil))
		return
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var reqs []request
		if err := json.Unmarshal(body, &reqs); err != nil {
			writeJSON(w, errResponse(nil, codeParseError, err.Error(), nil))
			return
		}
		out := make([]response, len(reqs))
		for i, req := range reqs {
			out[i] = s.dispatch(req)
		}
		writeJSON(w, out)
		return
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, errResponse(nil, codeParseError, err.Error(), nil))
		return
	}
	writeJSON(w, s.dispatch(req))
}

func (s *Server) dispatch(req request) response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errResponse(req.ID, codeInvalidRequest, "not a valid JSON-RPC 2.0 request", nil)
	}
	h, ok := methodTable[req.Method]
	if !ok {
		return errResponse(req.ID, codeMethodNotFound, "unknown method "+req.Method, nil)
	}
	rpcRequestsTotal().AddWithLabel(1, map[string]string{"method": req.Method})
	result, err := h(s, req.Params)
	if err != nil {
		if ie, ok := err.(*invalidParamsError); ok {
			return errResponse(req.ID, codeInvalidParams, ie.Error(), nil)
		}
		code, name := classify(err)
		logger.Debug("rpc call failed", "method", req.Method, "err", err)
		return errResponse(req.ID, code, name, err.Error())
	}
	return okResponse(req.ID, result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

// invalidParamsError marks a params-decoding failure so dispatch can
// report it as codeInvalidParams instead of running it through the
// domain error classifier.
type invalidParamsError struct{ err error }

func (e *invalidParamsError) Error() string { return e.err.Error() }

func invalidParams(err error) error { return &invalidParamsError{err} }
