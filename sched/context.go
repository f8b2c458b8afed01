package sched

// Context is handed to a running task. It is only valid on the dispatcher
// goroutine for the duration of the task.
type Context struct {
	core *Core
	prio Priority
	name string
}

// Priority returns the priority of the running task.
func (x *Context) Priority() Priority { return x.prio }

// Task returns the running task's name.
func (x *Context) Task() string { return x.name }

// Halted reports whether the core has faulted.
func (x *Context) Halted() bool { return x.core.halted.Load() }

// Yield is a preemption point: pending tasks of higher priority than the
// caller and the current ceiling run before it returns.
func (x *Context) Yield() { x.core.dispatch() }
