// Package commands implements the transclient CLI's subcommands.
package commands

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "transclient",
	Short:         "Chunked file-transfer client",
	Long:          `transclient downloads files over a paced, block-scheduled TCP protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "transclient.ini", "transfer profile config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(serveTestCmd)
}
