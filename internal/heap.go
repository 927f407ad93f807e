package internal

import "time"

type Task struct {
	Due    time.Time
	Period time.Duration // > 0 for repeating tasks
	Run    func()

	// owner of the scheduled handle, disposed once a one-shot task ran
	Owner *Owner

	seq   uint64
	index int // position in the heap, -1 when not queued
}

// TaskHeap orders tasks by due time, insertion order breaking ties.
type TaskHeap struct {
	tasks []*Task
	seq   uint64
}

func NewTaskHeap() *TaskHeap {
	return &TaskHeap{
		tasks: make([]*Task, 0, 16),
	}
}

func (h *TaskHeap) Len() int {
	return len(h.tasks)
}

func (h *TaskHeap) Insert(t *Task) {
	h.seq++
	t.seq = h.seq
	t.index = len(h.tasks)
	h.tasks = append(h.tasks, t)
	h.up(t.index)
}

// Peek returns the earliest task without removing it.
func (h *TaskHeap) Peek() *Task {
	if len(h.tasks) == 0 {
		return nil
	}
	return h.tasks[0]
}

func (h *TaskHeap) PopMin() *Task {
	if len(h.tasks) == 0 {
		return nil
	}

	t := h.tasks[0]
	h.removeAt(0)
	return t
}

// Remove drops t if it is still queued.
func (h *TaskHeap) Remove(t *Task) {
	if t.index < 0 || t.index >= len(h.tasks) || h.tasks[t.index] != t {
		return
	}
	h.removeAt(t.index)
}

func (h *TaskHeap) removeAt(i int) {
	last := len(h.tasks) - 1
	removed := h.tasks[i]

	if i != last {
		h.swap(i, last)
	}
	h.tasks[last] = nil
	h.tasks = h.tasks[:last]
	removed.index = -1

	if i < len(h.tasks) {
		h.down(i)
		h.up(i)
	}
}

func (h *TaskHeap) less(i, j int) bool {
	a, b := h.tasks[i], h.tasks[j]
	if a.Due.Equal(b.Due) {
		return a.seq < b.seq
	}
	return a.Due.Before(b.Due)
}

func (h *TaskHeap) swap(i, j int) {
	h.tasks[i], h.tasks[j] = h.tasks[j], h.tasks[i]
	h.tasks[i].index = i
	h.tasks[j].index = j
}

func (h *TaskHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *TaskHeap) down(i int) {
	n := len(h.tasks)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2

		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}

		h.swap(i, smallest)
		i = smallest
	}
}
