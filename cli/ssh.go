package main

import (
	"fmt"

	"github.com/lakeward/deckhand/fleet"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var sshCmd = &cobra.Command{
	Use:   "ssh [MACHINE]",
	Short: "Opens an interactive shell on a machine, the coordinator by default",
	Args:  cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		view, err := ws.orchestrator.Fleet(cmd.Context())
		if err != nil {
			return err
		}

		var node fleet.Node
		if len(args) == 0 {
			if view.Coordinator == nil {
				return fmt.Errorf("cluster '%s' has no coordinator", ws.deployfile.Cluster)
			}
			node = *view.Coordinator
		} else {
			nodes := view.Workers
			if view.Coordinator != nil {
				nodes = append([]fleet.Node{*view.Coordinator}, nodes...)
			}
			found, ok := lo.Find(nodes, func(node fleet.Node) bool { return node.Name == args[0] })
			if !ok {
				return fmt.Errorf("no machine named '%s' in cluster '%s'", args[0], ws.deployfile.Cluster)
			}
			node = found
		}

		return ws.runner.Shell(cmd.Context(), node.Addr)
	},
}
