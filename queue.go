package touchwheel

// EventQueue is an unbounded FIFO of pending events.
//
// The classifier is the only producer and the UI layer the only consumer, both
// on the polling goroutine; the queue is not safe for concurrent use.
type EventQueue struct {
	data []Event
}

// Push appends an event.
func (q *EventQueue) Push(ev Event) {
	q.data = append(q.data, ev)
}

// Pop removes and returns the oldest event. ok is false when the queue is
// empty, which is the common case on most polls.
func (q *EventQueue) Pop() (ev Event, ok bool) {
	if len(q.data) == 0 {
		return Event{}, false
	}
	ev = q.data[0]
	q.data[0] = Event{}
	q.data = q.data[1:]
	if len(q.data) == 0 {
		q.data = nil
	}
	return ev, true
}

// Clear drops all pending events.
func (q *EventQueue) Clear() {
	q.data = nil
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return len(q.data) }
