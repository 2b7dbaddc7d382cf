package main

import (
	"time"

	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/ledgerless/ledgerless/gossip"
)

// runSyncProgressBar renders a terminal progress bar for as long as
// node is reconstructing a remote root via state sync, tearing it down
// between sessions so an idle, caught-up node prints nothing.
func runSyncProgressBar(quit <-chan struct{}, node *gossip.Node) {
	var bar *pb.ProgressBar
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			if bar != nil {
				bar.Finish()
			}
			return
		case <-ticker.C:
			current, target, syncing := node.SyncProgress()
			if !syncing {
				if bar != nil {
					bar.Finish()
					bar = nil
				}
				continue
			}
			if bar == nil {
				bar = pb.New64(int64(target)).SetMaxWidth(90).Start()
			}
			bar.Total = int64(target)
			bar.Set64(int64(current))
		}
	}
}
