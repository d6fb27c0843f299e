// Command syncd runs the replication engine's HTTP surface and, on branch sites, its
// central-dispatch poller.
package main

import (
	"log"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/internal/bootstrap"
)

func main() {
	common.InitLocalEnvConfig()

	svc, err := bootstrap.InitServers()
	if err != nil {
		log.Fatalf("syncd: failed to initialize: %v", err)
	}

	svc.Run()
}
