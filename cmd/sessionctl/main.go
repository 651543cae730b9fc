// Command sessionctl inspects and edits the persisted session list while the gateway is stopped.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
