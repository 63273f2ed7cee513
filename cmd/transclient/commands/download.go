package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danejoe001/transclient/pkg/client"
	"github.com/danejoe001/transclient/pkg/config"
	"github.com/danejoe001/transclient/pkg/model"
	"github.com/danejoe001/transclient/pkg/store/bunt"
)

var (
	downloadFileID int64
	downloadDest   string
	downloadDBPath string
	downloadWait   time.Duration
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download one remote file by id",
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().Int64Var(&downloadFileID, "file-id", 0, "remote file id (required)")
	downloadCmd.Flags().StringVar(&downloadDest, "dest", "", "destination path (required)")
	downloadCmd.Flags().StringVar(&downloadDBPath, "state-db", "transclient.db", "path to the local task/block state database")
	downloadCmd.Flags().DurationVar(&downloadWait, "timeout", 5*time.Minute, "maximum time to wait for completion")
	_ = downloadCmd.MarkFlagRequired("file-id")
	_ = downloadCmd.MarkFlagRequired("dest")
}

func runDownload(cmd *cobra.Command, args []string) error {
	profile, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	db, err := bunt.Open(downloadDBPath)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer db.Close()

	c, err := client.Dial(profile, client.Options{}, db.Tasks, db.Blocks, db.Files)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), downloadWait)
	defer cancel()

	taskID, err := c.StartDownload(ctx, downloadFileID, downloadDest)
	if err != nil {
		return fmt.Errorf("start download: %w", err)
	}
	cmd.Printf("task %d enqueued, saving to %s\n", taskID, downloadDest)
	return awaitTask(cmd, ctx, db, taskID, c.TaskCompleted())
}

// awaitTask blocks until taskID either reaches Completed (reported on
// completed, TaskCompleted's channel, which never fires for a task
// that ends Failed) or its persisted row reads back as Failed, polled
// on a short interval since that state change otherwise has no signal
// of its own.
func awaitTask(cmd *cobra.Command, ctx context.Context, db *bunt.DB, taskID int64, completed <-chan int64) error {
	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case done := <-completed:
			if done != taskID {
				continue
			}
			cmd.Printf("task %d finished\n", taskID)
			return nil
		case <-poll.C:
			task, found, err := db.Tasks.GetByID(taskID)
			if err != nil {
				return fmt.Errorf("poll task %d: %w", taskID, err)
			}
			if found && task.State == model.StateFailed {
				return fmt.Errorf("task %d failed", taskID)
			}
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for task %d to finish: %w", taskID, ctx.Err())
		}
	}
}
