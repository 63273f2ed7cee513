package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danejoe001/transclient/pkg/client"
	"github.com/danejoe001/transclient/pkg/config"
	"github.com/danejoe001/transclient/pkg/store/bunt"
)

var (
	resumeTaskID int64
	resumeDBPath string
	resumeWait   time.Duration
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a previously started task from its persisted state",
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().Int64Var(&resumeTaskID, "task-id", 0, "task id to resume (required)")
	resumeCmd.Flags().StringVar(&resumeDBPath, "state-db", "transclient.db", "path to the local task/block state database")
	resumeCmd.Flags().DurationVar(&resumeWait, "timeout", 5*time.Minute, "maximum time to wait for completion")
	_ = resumeCmd.MarkFlagRequired("task-id")
}

func runResume(cmd *cobra.Command, args []string) error {
	profile, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	db, err := bunt.Open(resumeDBPath)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer db.Close()

	c, err := client.Dial(profile, client.Options{}, db.Tasks, db.Blocks, db.Files)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.ResumeTask(resumeTaskID); err != nil {
		return fmt.Errorf("resume task: %w", err)
	}
	cmd.Printf("task %d re-enqueued\n", resumeTaskID)

	ctx, cancel := context.WithTimeout(context.Background(), resumeWait)
	defer cancel()
	return awaitTask(cmd, ctx, db, resumeTaskID, c.TaskCompleted())
}
