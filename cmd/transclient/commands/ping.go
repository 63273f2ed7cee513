package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/danejoe001/transclient/pkg/client"
	"github.com/danejoe001/transclient/pkg/config"
	"github.com/danejoe001/transclient/pkg/store/bunt"
)

var pingMessage string

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a /test request and print the echoed reply",
	RunE:  runPing,
}

func init() {
	pingCmd.Flags().StringVar(&pingMessage, "message", "ping", "message to echo")
}

func runPing(cmd *cobra.Command, args []string) error {
	profile, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	db, err := bunt.Open(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := client.Dial(profile, client.Options{}, db.Tasks, db.Blocks, db.Files)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reply, err := c.Ping(ctx, pingMessage)
	if err != nil {
		return err
	}
	cmd.Println(reply)
	return nil
}
