// Package task implements the task registry. Tasks are registered through
// explicit Register calls on a Registry value, so callers and tests decide
// exactly which capabilities a registry exposes.
package task
