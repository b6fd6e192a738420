package builtin

import (
	"context"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/eugenenazirov/chainbuild/internal/task"
)

// NetworksTask is the name of the network listing task.
const NetworksTask = "networks"

// RegisterNetworks registers the task listing the configured networks.
func RegisterNetworks(registry *task.Registry) (task.Task, error) {
	t := task.Task{
		Name:        NetworksTask,
		Description: "Prints the configured networks",
		Action:      printNetworks,
	}
	if err := registry.Register(t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// printNetworks renders one row per network, marking the selected one with
// a leading "*".
func printNetworks(_ context.Context, rt *task.Runtime) error {
	cfg := rt.Config.Redacted()

	table := tablewriter.NewWriter(rt.Stdout)
	table.SetHeader([]string{"Network", "URL", "Chain ID", "Accounts"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	for _, name := range cfg.NetworkNames() {
		n := cfg.Networks[name]

		label := name
		if name == rt.Network {
			label = "* " + name
		}
		endpoint := n.URL
		if n.InMemory {
			endpoint = "in-memory"
		}
		chainID := "-"
		if n.ChainID != 0 {
			chainID = strconv.FormatUint(n.ChainID, 10)
		}
		table.Append([]string{label, endpoint, chainID, strconv.Itoa(len(n.Accounts))})
	}

	table.Render()
	return nil
}
