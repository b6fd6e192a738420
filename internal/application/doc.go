// Package application wires the resolved configuration, the network registry
// and the task registry together, keeping the main package focused on flag
// parsing and signal handling.
package application
