package app

import "sync"

// Queue hands work from background goroutines to the render thread, which
// owns the graphics context.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
	wake  func()
}

// NewQueue returns a queue. wake, if non-nil, is called after every Post
// to interrupt a blocking event wait on the render thread.
func NewQueue(wake func()) *Queue {
	return &Queue{wake: wake}
}

// Post schedules task on the render thread. It never blocks.
func (q *Queue) Post(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	if q.wake != nil {
		q.wake()
	}
}

// Drain runs every queued task in post order and returns how many ran.
// Tasks posted while draining run on the next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
