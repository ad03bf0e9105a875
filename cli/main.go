package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Versioning information set at build time
var version, commit = "dev", "n/a"

var verbose bool

const (
	flagConfig    = "config"
	flagLogFormat = "log-format"
	flagLogLevel  = "log-level"
)

var deckhandCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "Deckhand provisions data processing clusters on cloud providers.",
	Long: "Deckhand turns a deployment file into a running cluster: one coordinator,\n" +
		"any number of workers, and the processing engine installed and started on\n" +
		"every node. The cloud provider's inventory is the only state it keeps.",

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
		return initLogger()
	},
}

func init() {
	deckhandCmd.AddCommand(addWorkersCmd)
	deckhandCmd.AddCommand(createClusterCmd)
	deckhandCmd.AddCommand(destroyClusterCmd)
	deckhandCmd.AddCommand(machinesCmd)
	deckhandCmd.AddCommand(removeWorkersCmd)
	deckhandCmd.AddCommand(restartClusterCmd)
	deckhandCmd.AddCommand(sshCmd)
	deckhandCmd.AddCommand(submitJobCmd)
	deckhandCmd.AddCommand(topCmd)
	deckhandCmd.AddCommand(versionCmd)

	deckhandCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	deckhandCmd.PersistentFlags().StringP(flagConfig, "c", "deckhand.yaml", "deployment file to use")
	deckhandCmd.PersistentFlags().String(flagLogFormat, "text", "log format (json, text)")
	deckhandCmd.PersistentFlags().String(flagLogLevel, "WARN", "minimum log level")

	viper.SetEnvPrefix("deckhand")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deckhandCmd.SetOut(os.Stdout)
	if err := deckhandCmd.ExecuteContext(ctx); err != nil {
		lo.Must(fmt.Fprintln(os.Stderr, color.HiRedString(fmt.Sprint(err))))
		os.Exit(1)
	}
}
