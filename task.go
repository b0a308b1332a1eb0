package catacombs

// scheduledTask is a one-shot function due on a tick.
type scheduledTask struct {
	// dueTick is the tick the task runs on
	dueTick uint64

	// seq orders tasks due on the same tick by scheduling order
	seq uint64

	fn        func()
	cancelled bool

	// index is the heap index for efficient removal
	index int
}

// taskQueue is a priority queue for scheduled tasks.
// It uses a binary heap for O(log n) insertion and removal.
type taskQueue struct {
	heap    []*scheduledTask
	nextSeq uint64
}

func (q *taskQueue) less(a, b *scheduledTask) bool {
	if a.dueTick != b.dueTick {
		return a.dueTick < b.dueTick
	}
	return a.seq < b.seq
}

// compactHeap removes cancelled tasks from the heap and rebuilds the heap property.
func (q *taskQueue) compactHeap() {
	write := 0
	for read := 0; read < len(q.heap); read++ {
		if !q.heap[read].cancelled {
			q.heap[write] = q.heap[read]
			q.heap[write].index = write
			write++
		}
	}

	for i := write; i < len(q.heap); i++ {
		q.heap[i] = nil
	}
	q.heap = q.heap[:write]

	for i := len(q.heap)/2 - 1; i >= 0; i-- {
		q.down(i, len(q.heap))
	}
}

// Push adds a task to the queue with periodic cleanup to prevent memory leaks.
func (q *taskQueue) Push(task *scheduledTask) {
	if len(q.heap) > 100 && len(q.heap)%100 == 0 {
		q.compactHeap()
	}
	task.seq = q.nextSeq
	q.nextSeq++
	task.index = len(q.heap)
	q.heap = append(q.heap, task)
	q.up(task.index)
}

// PopDue removes and returns all live tasks due on or before tick, in run
// order.
func (q *taskQueue) PopDue(tick uint64) []*scheduledTask {
	var due []*scheduledTask
	for len(q.heap) > 0 && q.heap[0].dueTick <= tick {
		task := q.pop()
		if !task.cancelled {
			due = append(due, task)
		}
	}
	return due
}

// Len returns the number of tasks in the queue, cancelled ones included.
func (q *taskQueue) Len() int {
	return len(q.heap)
}

// Clear removes all tasks from the queue.
func (q *taskQueue) Clear() {
	for _, t := range q.heap {
		t.cancelled = true
	}
	clear(q.heap)
	q.heap = q.heap[:0]
}

// pop removes and returns the minimum task.
func (q *taskQueue) pop() *scheduledTask {
	n := len(q.heap) - 1
	q.swap(0, n)
	q.down(0, n)
	task := q.heap[n]
	q.heap[n] = nil // Allow GC
	q.heap = q.heap[:n]
	task.index = -1
	return task
}

// up moves task at index up the heap.
func (q *taskQueue) up(i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || !q.less(q.heap[i], q.heap[parent]) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

// down moves task at index down the heap.
func (q *taskQueue) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n || left < 0 {
			break
		}
		j := left
		if right := left + 1; right < n && q.less(q.heap[right], q.heap[left]) {
			j = right
		}
		if !q.less(q.heap[j], q.heap[i]) {
			break
		}
		q.swap(i, j)
		i = j
	}
}

// swap swaps two tasks in the heap.
func (q *taskQueue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].index = i
	q.heap[j].index = j
}

// TaskHandle allows cancelling a scheduled task.
type TaskHandle struct {
	task *scheduledTask
}

// Cancel cancels the scheduled task. Cancelling a task that already ran does
// nothing.
func (h *TaskHandle) Cancel() {
	if h != nil && h.task != nil {
		h.task.cancelled = true
	}
}

// After schedules fn to run once, delay ticks from now, after every loop of
// that tick. A delay of zero is treated as one.
func (s *Scheduler) After(delay uint64, fn func()) *TaskHandle {
	if delay == 0 {
		delay = 1
	}
	task := &scheduledTask{dueTick: s.tickNumber + delay, fn: fn}
	s.tasks.Push(task)
	return &TaskHandle{task: task}
}

// PendingTasks returns the number of queued tasks.
func (s *Scheduler) PendingTasks() int {
	return s.tasks.Len()
}

// runTasks runs the tasks due on the current tick. Tasks scheduled by a
// running task with a delay of one run on the next tick.
func (s *Scheduler) runTasks() {
	for _, task := range s.tasks.PopDue(s.tickNumber) {
		s.runTask(task)
	}
}

func (s *Scheduler) runTask(task *scheduledTask) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("catacombs: scheduled task panicked")
		}
	}()
	task.fn()
}
