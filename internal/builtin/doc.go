// Package builtin holds the tasks shipped with chainbuild. Each Register
// function adds one task to the registry it is given and returns the task it
// recorded.
package builtin
