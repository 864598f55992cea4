package task

// SimpleExecutor is an unbounded FIFO executor that repeatedly polls every
// pending task, ignoring wakeups. It is only suitable for futures that
// make progress on their own, such as during early boot or in tests.
type SimpleExecutor struct {
	queue []*Task
}

// NewSimpleExecutor returns an empty SimpleExecutor.
func NewSimpleExecutor() *SimpleExecutor {
	return &SimpleExecutor{}
}

// Spawn appends t to the queue.
func (e *SimpleExecutor) Spawn(t *Task) error {
	if t == nil {
		return ErrNilTask
	}
	if !t.claim() {
		return ErrDuplicateTask
	}
	e.queue = append(e.queue, t)
	return nil
}

// Len returns the number of pending tasks.
func (e *SimpleExecutor) Len() int {
	return len(e.queue)
}

// Run polls tasks round-robin until all have completed.
func (e *SimpleExecutor) Run() {
	cx := NewContext(NoopWaker())
	for len(e.queue) > 0 {
		t := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		if t.poll(cx) == Pending {
			e.queue = append(e.queue, t)
		}
	}
}
