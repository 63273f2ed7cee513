// Command transclient-testserver serves every regular file in a
// directory over the transclient protocol, assigning file ids in
// directory order. It is the fixture described in SPEC_FULL.md's
// supplemental demo/test server section, not the original's excluded
// "simple demo server".
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/danejoe001/transclient/pkg/testserver"
	"github.com/danejoe001/transclient/pkg/wire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7878", "listen address")
	dir := flag.String("dir", ".", "directory of files to serve")
	flag.Parse()

	files, err := testserver.LoadDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "transclient-testserver: %v\n", err)
		os.Exit(1)
	}

	srv := testserver.New(files, wire.DefaultLimits())
	if err := srv.ListenAndServe(*addr); err != nil {
		log.WithError(err).Fatal("test server stopped")
	}
}
