// Command aigatewayd runs the reverse-proxy gateway.
package main

import "github.com/Sentinel-Gate/aigatewayd/cmd/aigatewayd/cmd"

func main() {
	cmd.Execute()
}
