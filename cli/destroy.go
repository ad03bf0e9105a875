package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/lakeward/deckhand/cli/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var destroyClusterCmd = &cobra.Command{
	Use:   "destroy-cluster",
	Short: "Terminates every machine of the cluster",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		if !lo.Must(cmd.Flags().GetBool("yes")) {
			cmd.Printf("Destroy cluster '%s' and all of its machines? [y/N] ", ws.deployfile.Cluster)
			answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
				cmd.Println("Aborted.")
				return nil
			}
		}

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Destroying cluster '%s'", ws.deployfile.Cluster))
		}
		if err := ws.orchestrator.DestroyFleet(cmd.Context()); err != nil {
			spinner.Fail()
			return fmt.Errorf("failed to destroy cluster: %w", err)
		}
		spinner.Success()

		cmd.Println(color.HiGreenString("Cluster destroyed"))
		return nil
	},
}

func init() {
	destroyClusterCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}
