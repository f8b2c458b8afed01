package sched

import "fmt"

// Resource is a value shared between tasks. Access goes through Lock,
// which raises the system ceiling to the highest priority of the
// resource's users for the duration of the critical section.
type Resource[T any] struct {
	core    *Core
	name    string
	ceiling Priority
	value   T
}

// NewResource declares a resource used by tasks of the given priorities.
func NewResource[T any](c *Core, name string, value T, users ...Priority) *Resource[T] {
	c.mustConfigure("resource declaration")
	r := &Resource[T]{core: c, name: name, value: value}
	for _, p := range users {
		r.ceiling = max(r.ceiling, p)
	}
	return r
}

// Ceiling returns the resource ceiling.
func (r *Resource[T]) Ceiling() Priority { return r.ceiling }

// Lock runs fn with exclusive access to the value. Releasing the lock is a
// preemption point. Locking from a task above the ceiling panics: that
// task was not declared as a user.
func (r *Resource[T]) Lock(x *Context, fn func(v *T)) {
	if x.prio > r.ceiling {
		panic(fmt.Sprintf("sched: task %s (priority %d) is not a user of resource %s (ceiling %d)",
			x.name, x.prio, r.name, r.ceiling))
	}
	c := r.core
	func() {
		prev := c.ceiling
		c.ceiling = max(prev, r.ceiling)
		defer func() { c.ceiling = prev }()
		fn(&r.value)
	}()
	c.dispatch()
}
