package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/lakeward/deckhand/cli/ui"
	"github.com/spf13/cobra"
)

var restartClusterCmd = &cobra.Command{
	Use:   "restart-cluster",
	Short: "Rewrites the cluster configuration and restarts every engine service",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Restarting cluster '%s'", ws.deployfile.Cluster))
		}
		if err := ws.orchestrator.RestartCluster(cmd.Context()); err != nil {
			spinner.Fail()
			return fmt.Errorf("failed to restart cluster: %w", err)
		}
		spinner.Success()

		cmd.Println(color.HiGreenString("Cluster restarted"))
		return nil
	},
}
