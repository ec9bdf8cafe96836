// Local trust-state CLI: identities, vaults, named entities, policies, and
// whole-directory lifecycle operations.
package main

import "github.com/Rage-cmd/ockam/cmd/ockam/cmd"

func main() {
	cmd.Execute()
}
