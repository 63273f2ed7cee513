package commands

import (
	"github.com/spf13/cobra"

	"github.com/danejoe001/transclient/pkg/testserver"
	"github.com/danejoe001/transclient/pkg/wire"
)

var (
	serveTestAddr string
	serveTestDir  string
)

var serveTestCmd = &cobra.Command{
	Use:   "serve-test",
	Short: "Run the bundled fixture server, serving files from a directory",
	RunE:  runServeTest,
}

func init() {
	serveTestCmd.Flags().StringVar(&serveTestAddr, "addr", "127.0.0.1:7878", "listen address")
	serveTestCmd.Flags().StringVar(&serveTestDir, "dir", ".", "directory of files to serve")
}

func runServeTest(cmd *cobra.Command, args []string) error {
	files, err := testserver.LoadDir(serveTestDir)
	if err != nil {
		return err
	}
	srv := testserver.New(files, wire.DefaultLimits())
	cmd.Printf("serving %d files on %s\n", len(files), serveTestAddr)
	return srv.ListenAndServe(serveTestAddr)
}
