// tether resolves package-manager dependency graphs with root-level
// overrides and pins them in a deterministic lockfile.
package main

import "github.com/tether-pm/tether/cmd/tether/cmd"

func main() {
	cmd.Execute()
}
