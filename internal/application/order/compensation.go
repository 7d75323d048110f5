package order

import "context"

// compensator records one inverse action per completed side-effecting step
// of a workflow invocation and runs them in reverse order when a later step
// fails. Each recorded action runs at most once; failures are collected, not
// swallowed.
type compensator struct {
	steps []compensationStep
	done  bool
}

type compensationStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (c *compensator) push(name string, fn func(ctx context.Context) error) {
	c.steps = append(c.steps, compensationStep{name: name, fn: fn})
}

// run executes the recorded actions LIFO and returns the failures. A second
// call is a no-op so compensation can never be applied twice.
func (c *compensator) run(ctx context.Context) []error {
	if c.done {
		return nil
	}
	c.done = true

	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i].fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
