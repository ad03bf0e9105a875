package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/lakeward/deckhand/cli/ui"
	"github.com/lakeward/deckhand/fleet"
	"github.com/spf13/cobra"
)

var createClusterCmd = &cobra.Command{
	Use:   "create-cluster WORKERS",
	Short: "Provisions a new cluster with a coordinator and WORKERS workers",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[0])
		if err != nil || count < 0 {
			return fmt.Errorf("invalid worker count '%s'", args[0])
		}

		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Provisioning coordinator '%s'", fleet.CoordinatorName(ws.deployfile.Cluster)))
		}
		coordinator, err := ws.orchestrator.CreateCoordinator(cmd.Context())
		if err != nil {
			spinner.Fail()
			return fmt.Errorf("failed to create coordinator: %w", err)
		}
		spinner.Success(fmt.Sprintf("Coordinator '%s' is up at %s", coordinator.Name, coordinator.Addr))

		if count > 0 {
			if !verbose {
				spinner = ui.NewSpinner(fmt.Sprintf("Provisioning %d worker(s)", count))
			}
			workers, err := ws.orchestrator.AddWorkers(cmd.Context(), count)
			if err != nil {
				spinner.Fail()
				return fmt.Errorf("failed to add workers: %w", err)
			}
			spinner.Success(fmt.Sprintf("%d worker(s) joined the cluster", len(workers)))
		}

		cmd.Printf(color.HiGreenString("Cluster '%s' is ready, connect with: %s ssh\n"), ws.deployfile.Cluster, deckhandCmd.Name())
		return nil
	},
}
