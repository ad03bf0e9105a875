package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/lakeward/deckhand/cli/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var submitJobCmd = &cobra.Command{
	Use:   "submit-job ARTIFACT [ARGS...]",
	Short: "Uploads a job artifact to the coordinator and submits it to the engine",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		env := lo.SliceToMap(lo.Must(cmd.Flags().GetStringArray("env")), func(item string) (key, value string) { key, value, _ = strings.Cut(item, "="); return })

		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		view, err := ws.orchestrator.Fleet(cmd.Context())
		if err != nil {
			return err
		}
		if view.Coordinator == nil {
			return fmt.Errorf("cluster '%s' has no coordinator", ws.deployfile.Cluster)
		}

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Submitting '%s'", args[0]))
		}
		if err := ws.engine.Submit(cmd.Context(), *view.Coordinator, args[0], args[1:], env); err != nil {
			spinner.Fail()
			return err
		}
		spinner.Success()

		cmd.Println(color.HiGreenString("Job submitted"))
		return nil
	},
}

func init() {
	submitJobCmd.Flags().StringArrayP("env", "e", nil, "environment variables to set for the job (KEY=VALUE)")
}
