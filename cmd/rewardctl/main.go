// Command rewardctl administers the rewards engine: catalog management,
// awarding, consumption, ledger credits and maintenance.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
