package builtin

import "github.com/eugenenazirov/chainbuild/internal/task"

// RegisterAll registers every built-in task and returns them in
// registration order.
func RegisterAll(registry *task.Registry) ([]task.Task, error) {
	registrars := []func(*task.Registry) (task.Task, error){
		RegisterAccounts,
		RegisterNetworks,
		RegisterConfig,
		RegisterNode,
	}

	registered := make([]task.Task, 0, len(registrars))
	for _, register := range registrars {
		t, err := register(registry)
		if err != nil {
			return nil, err
		}
		registered = append(registered, t)
	}
	return registered, nil
}
