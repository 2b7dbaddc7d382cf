package rpcapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ledgerless/ledgerless/mesh"
)

// rootsFeedPollInterval is how often the feed checks the engine for a
// root change. Shorter than the gossip fabric's 10s roots/v1 heartbeat
// interval, so a subscriber learns of a new root within about two
// seconds.
const rootsFeedPollInterval = 2 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// rootsHeartbeat is the payload pushed to every roots/v1 websocket
// subscriber whenever this node's root changes.
type rootsHeartbeat struct {
	Root    mesh.Hash `json:"root"`
	Version uint64    `json:"version"`
}

// rootsFeed fans this node's root out to connected roots/v1
// subscribers. It polls the engine rather than hooking a callback into
// the write path, so the RPC surface stays a read-only observer of
// engine state.
type rootsFeed struct {
	root func() (mesh.Hash, uint64)

	mu   sync.Mutex
	subs map[chan rootsHeartbeat]struct{}
}

func newRootsFeed(root func() (mesh.Hash, uint64)) *rootsFeed {
	return &rootsFeed{root: root, subs: make(map[chan rootsHeartbeat]struct{})}
}

// run polls for root changes until stop is closed. Call it in its own
// goroutine; a Server with no subscribers still pays the poll but does
// no socket work.
func (f *rootsFeed) run(stop <-chan struct{}) {
	root, _ := f.root()
	last := root
	ticker := time.NewTicker(rootsFeedPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			root, version := f.root()
			if root == last {
				continue
			}
			last = root
			f.broadcast(rootsHeartbeat{Root: root, Version: version})
		}
	}
}

func (f *rootsFeed) broadcast(hb rootsHeartbeat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- hb:
		default: // slow subscriber; drop rather than block the feed
		}
	}
}

func (f *rootsFeed) subscribe() chan rootsHeartbeat {
	ch := make(chan rootsHeartbeat, 4)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *rootsFeed) unsubscribe(ch chan rootsHeartbeat) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
	close(ch)
}

// RunRootsFeed polls for root changes and pushes them to roots/v1
// websocket subscribers until stop is closed. Callers run it in its
// own goroutine alongside the HTTP server serving s.Handler().
func (s *Server) RunRootsFeed(stop <-chan struct{}) {
	s.feed.run(stop)
}

func (s *Server) handleSubscribeRoots(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("roots/v1 websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch := s.feed.subscribe()
	defer s.feed.unsubscribe(ch)

	for hb := range ch {
		if err := conn.WriteJSON(hb); err != nil {
			return
		}
	}
}
