// Package runtime describes the worker runtime capability set:
// create, list by name prefix, and forced remove.
package runtime

import "context"

// Instance is one runtime entity as listed, running or not.
type Instance struct {
	Handle  string
	Name    string
	State   string
	Running bool
}

// Runtime is implemented by docker.Runtime.
// Each call is independently atomic; callers do not need transactions.
type Runtime interface {
	Create(ctx context.Context, name string, env map[string]string) (string, error)
	List(ctx context.Context, namePrefix string) ([]Instance, error)
	Remove(ctx context.Context, handle string) error
}
