package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/lakeward/deckhand/cli/ui"
	"github.com/lakeward/deckhand/fleet"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var addWorkersCmd = &cobra.Command{
	Use:   "add-workers COUNT",
	Short: "Adds COUNT workers to the cluster",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[0])
		if err != nil || count < 1 {
			return fmt.Errorf("invalid worker count '%s'", args[0])
		}

		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Provisioning %d worker(s)", count))
		}
		workers, err := ws.orchestrator.AddWorkers(cmd.Context(), count)
		if err != nil {
			spinner.Fail()
			return fmt.Errorf("failed to add workers: %w", err)
		}
		spinner.Success()

		joined := lo.Map(workers, func(node fleet.Node, _ int) string {
			return fmt.Sprintf("%s (%s)", node.Name, node.Addr)
		})
		cmd.Printf(color.HiGreenString("Added %s\n"), strings.Join(joined, ", "))
		return nil
	},
}

var removeWorkersCmd = &cobra.Command{
	Use:   "remove-workers COUNT",
	Short: "Removes the COUNT most recently added workers from the cluster",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[0])
		if err != nil || count < 1 {
			return fmt.Errorf("invalid worker count '%s'", args[0])
		}

		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Removing %d worker(s)", count))
		}
		workers, err := ws.orchestrator.RemoveWorkers(cmd.Context(), count)
		if err != nil {
			spinner.Fail()
			return fmt.Errorf("failed to remove workers: %w", err)
		}
		spinner.Success()

		cmd.Printf(color.HiGreenString("Removed %s\n"), strings.Join(nodeNames(workers), ", "))
		return nil
	},
}

func nodeNames(nodes []fleet.Node) []string {
	return lo.Map(nodes, func(node fleet.Node, _ int) string { return node.Name })
}
