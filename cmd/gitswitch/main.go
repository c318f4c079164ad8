// Command gitswitch manages git identities and switches between them.
package main

import "github.com/ksteinfeldt/gitswitch/internal/cmd"

func main() {
	cmd.Execute()
}
