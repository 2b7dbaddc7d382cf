// Package clock gives the bridge and gossip heartbeat a wall-clock
// view that tracks a best-effort offset against a small set of NTP
// servers, rather than trusting the local clock outright. It never
// feeds into any signature or proof: Now is advisory, used only for
// Expired transitions and heartbeat staleness checks that stay
// consistent across a federation of independently-clocked nodes.
package clock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/beevik/ntp"

	"github.com/ledgerless/ledgerless/log"
)

// Clock exposes an offset-corrected Now, resynced periodically in the
// background.
type Clock struct {
	servers []string
	log     *slog.Logger

	mu     sync.RWMutex
	offset time.Duration

	stop chan struct{}
}

var defaultServers = []string{"pool.ntp.org", "time.google.com"}

// New starts a Clock synced against servers (defaultServers if empty).
// Query failures are logged and simply leave the previous offset in
// place; a Clock that has never successfully queried reports offset 0,
// i.e. the raw local clock.
func New(servers []string) *Clock {
	if len(servers) == 0 {
		servers = defaultServers
	}
	c := &Clock{
		servers: servers,
		log:     log.New("clock"),
		stop:    make(chan struct{}),
	}
	c.resync()
	go c.loop()
	return c
}

// Now returns the local clock adjusted by the last known NTP offset.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// Offset returns the current correction applied to the local clock.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Close stops the background resync loop.
func (c *Clock) Close() { close(c.stop) }

func (c *Clock) loop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.resync()
		}
	}
}

func (c *Clock) resync() {
	for _, server := range c.servers {
		resp, err := ntp.Query(server)
		if err != nil {
			c.log.Debug("ntp query failed", "server", server, "err", err)
			continue
		}
		if err := resp.Validate(); err != nil {
			c.log.Debug("ntp response invalid", "server", server, "err", err)
			continue
		}
		c.mu.Lock()
		c.offset = resp.ClockOffset
		c.mu.Unlock()
		if resp.ClockOffset > time.Second || resp.ClockOffset < -time.Second {
			c.log.Warn("local clock offset detected", "server", server, "offset", resp.ClockOffset)
		}
		return
	}
}
