// Command transclient is the CLI front-end to pkg/client: download a
// remote file by id, resume a previously started task, ping the server,
// or run the bundled test server for local experimentation. Command
// structure follows the cobra root-command pattern used across the
// retrieved pack's multi-command tools (e.g. marmos91-dittofs's
// cmd/dittofs/commands).
package main

import (
	"fmt"
	"os"

	"github.com/danejoe001/transclient/cmd/transclient/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "transclient: %v\n", err)
		os.Exit(1)
	}
}
