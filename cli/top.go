package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lakeward/deckhand/fleet"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show a live view of the cluster machines",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}

		app := tview.NewApplication()

		// Header
		header := tview.NewTextView().
			SetDynamicColors(true).
			SetWordWrap(true).
			SetTextAlign(tview.AlignLeft)
		header.SetBorder(true).SetTitle(" Deckhand ")

		// Machines table
		machinesTable := tview.NewTable().
			SetFixed(1, 0).
			SetSelectable(true, false)
		machinesTable.SetBorder(true).SetTitle(" Machines ")

		// Layout
		layout := tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(header, 5, 0, false).
			AddItem(machinesTable, 0, 1, true)

		// Input handling
		app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			if event.Rune() == 'q' {
				app.Stop()
				return nil
			}
			return event
		})

		// State for rendering, only accessed from tview's event loop (via QueueUpdateDraw)
		var lastInstances []fleet.Instance
		var lastRefresh time.Time
		var lastErr error

		updateHeader := func() {
			header.Clear()

			running := 0
			for _, instance := range lastInstances {
				if instance.State == fleet.InstanceStateRunning {
					running++
				}
			}

			fmt.Fprintf(header, " [yellow]deckhand[white] %s  |  Cluster: [aqua]%s[white]  |  Provider: [yellow]%s[white]\n",
				version, ws.deployfile.Cluster, ws.deployfile.Provider)
			fmt.Fprintf(header, " Machines: [green]%d running[white] / %d listed  |  Refreshed: [green]%s[white]",
				running, len(lastInstances), lastRefresh.Format("15:04:05"))
			if lastErr != nil {
				fmt.Fprintf(header, "\n [red]%s[-]", lastErr)
			}
		}

		updateMachines := func() {
			machinesTable.Clear()
			machinesTable.ScrollToBeginning()
			machinesTable.SetTitle(fmt.Sprintf(" Machines (%d) ", len(lastInstances)))

			// Header row
			for col, title := range []string{"NAME", "ROLE", "STATE", "PRIVATE IP", "PUBLIC IP"} {
				machinesTable.SetCell(0, col, tview.NewTableCell(title).
					SetTextColor(tcell.ColorYellow).
					SetSelectable(false).
					SetExpansion(1))
			}

			instances := make([]fleet.Instance, len(lastInstances))
			copy(instances, lastInstances)
			cluster := ws.deployfile.Cluster
			sort.Slice(instances, func(i, j int) bool {
				oi, oj := instanceOrder(cluster, instances[i]), instanceOrder(cluster, instances[j])
				if oi != oj {
					return oi < oj
				}
				return instances[i].Name < instances[j].Name
			})

			for row, instance := range instances {
				machinesTable.SetCell(row+1, 0, tview.NewTableCell(instance.Name).
					SetTextColor(tcell.ColorWhite).
					SetExpansion(2))

				machinesTable.SetCell(row+1, 1, tview.NewTableCell(instanceRole(cluster, instance)).
					SetTextColor(tcell.ColorAqua).
					SetExpansion(1))

				machinesTable.SetCell(row+1, 2, tview.NewTableCell(string(instance.State)).
					SetTextColor(instanceStateColor(instance.State)).
					SetExpansion(1))

				machinesTable.SetCell(row+1, 3, tview.NewTableCell(instance.PrivateAddr).
					SetTextColor(tcell.ColorWhite).
					SetExpansion(1))

				machinesTable.SetCell(row+1, 4, tview.NewTableCell(instance.PublicAddr).
					SetTextColor(tcell.ColorWhite).
					SetExpansion(1))
			}
		}

		updateAll := func() {
			updateHeader()
			updateMachines()
		}

		// done is closed when the app stops, to signal the poll goroutine to exit.
		done := make(chan struct{})

		// Poll goroutine: refreshes the provider inventory on a fixed interval
		// and feeds the result into tview's event loop. Listing errors are shown
		// in the header and polling continues; the next round may succeed.
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				instances, err := ws.directory.Instances(cmd.Context())
				refreshed := time.Now()
				select {
				case <-done:
					return
				default:
				}
				app.QueueUpdateDraw(func() {
					if err == nil {
						lastInstances = instances
					}
					lastRefresh = refreshed
					lastErr = err
					updateAll()
				})
				select {
				case <-done:
					return
				case <-cmd.Context().Done():
					app.Stop()
					return
				case <-ticker.C:
				}
			}
		}()

		err = app.SetRoot(layout, true).Run()
		close(done)
		return err
	},
}

func instanceOrder(cluster string, instance fleet.Instance) int {
	if instance.Name == fleet.CoordinatorName(cluster) {
		return 0
	}
	if index, ok := fleet.ParseWorkerIndex(cluster, instance.Name); ok {
		return 1 + index
	}
	return 1 << 20
}

func instanceRole(cluster string, instance fleet.Instance) string {
	if instance.Name == fleet.CoordinatorName(cluster) {
		return string(fleet.RoleCoordinator)
	}
	if _, ok := fleet.ParseWorkerIndex(cluster, instance.Name); ok {
		return string(fleet.RoleWorker)
	}
	return "-"
}

func instanceStateColor(state fleet.InstanceState) tcell.Color {
	switch state {
	case fleet.InstanceStateRunning:
		return tcell.ColorGreen
	case fleet.InstanceStateBuilding:
		return tcell.ColorYellow
	case fleet.InstanceStateTerminated:
		return tcell.ColorGray
	default:
		return tcell.ColorWhite
	}
}
