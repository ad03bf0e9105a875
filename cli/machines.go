package main

import (
	"github.com/fatih/color"
	"github.com/lakeward/deckhand/fleet"
	"github.com/spf13/cobra"
)

var machinesCmd = &cobra.Command{
	Use:     "machines",
	Aliases: []string{"ls"},
	Short:   "List the machines of the cluster",
	Args:    cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		view, err := ws.orchestrator.Fleet(cmd.Context())
		if err != nil {
			return err
		}

		if view.Coordinator == nil && len(view.Workers) == 0 {
			cmd.Println("No machines.")
			return nil
		}

		if view.Coordinator != nil {
			printNode(cmd, *view.Coordinator, fleet.RoleCoordinator)
		}
		for _, worker := range view.Workers {
			printNode(cmd, worker, fleet.RoleWorker)
		}

		return nil
	},
}

func printNode(cmd *cobra.Command, node fleet.Node, role fleet.Role) {
	name := color.HiCyanString(node.Name)
	if role == fleet.RoleCoordinator {
		name = color.HiMagentaString(node.Name)
	}
	cmd.Printf("%-11s  %-16s  %s\n", role, node.Addr, name)
}
