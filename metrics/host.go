package metrics

import (
	"os"
	"time"

	"github.com/elastic/gosigar"
)

// StartHostGaugeLoop periodically samples this process's RSS and CPU
// time via gosigar and pushes them into the host_rss_bytes and
// host_cpu_seconds_total gauges, the same library and sampling
// approach the cache-sizing code in a vechain-thor-style node uses for
// a one-shot total-memory check, just run on a ticker instead of once
// at startup.
func StartHostGaugeLoop(interval time.Duration, stop <-chan struct{}) {
	pid := os.Getpid()
	rss := Gauge("host_rss_bytes")
	cpu := Gauge("host_cpu_seconds_total")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var mem gosigar.ProcMem
			if err := mem.Get(pid); err == nil {
				rss.Set(int64(mem.Resident))
			}
			var t gosigar.ProcTime
			if err := t.Get(pid); err == nil {
				cpu.Set(int64(t.Total / 1000)) // ProcTime.Total is milliseconds
			}
		}
	}
}
