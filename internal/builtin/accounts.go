package builtin

import (
	"context"
	"fmt"

	"github.com/eugenenazirov/chainbuild/internal/task"
)

// AccountsTask is the name of the account listing task.
const AccountsTask = "accounts"

// RegisterAccounts registers the task printing the signing accounts of the
// selected network, one per line, in the order the provider returns them.
func RegisterAccounts(registry *task.Registry) (task.Task, error) {
	t := task.Task{
		Name:        AccountsTask,
		Description: "Prints the list of accounts",
		Action:      printAccounts,
	}
	if err := registry.Register(t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// printAccounts returns provider errors unchanged.
func printAccounts(ctx context.Context, rt *task.Runtime) error {
	provider, err := rt.Provider()
	if err != nil {
		return err
	}

	accounts, err := provider.Accounts(ctx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		if _, err := fmt.Fprintln(rt.Stdout, account.Hex()); err != nil {
			return err
		}
	}
	return nil
}
