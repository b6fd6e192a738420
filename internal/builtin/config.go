package builtin

import (
	"context"

	"github.com/eugenenazirov/chainbuild/internal/task"
)

// ConfigTask is the name of the configuration dump task.
const ConfigTask = "config"

// RegisterConfig registers the task printing the resolved configuration as
// YAML, with secrets masked.
func RegisterConfig(registry *task.Registry) (task.Task, error) {
	t := task.Task{
		Name:        ConfigTask,
		Description: "Prints the resolved configuration",
		Action: func(_ context.Context, rt *task.Runtime) error {
			out, err := rt.Config.Redacted().YAML()
			if err != nil {
				return err
			}
			_, err = rt.Stdout.Write(out)
			return err
		},
	}
	if err := registry.Register(t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}
