package jobsys

const (
	initialQueueCapacity = 64
)

// jobQueue is a growable first-in–first-out ring buffer of jobs.
//
// It is not synchronized. The pool only touches it under its own mutex,
// which makes a Pop and the hand-off to the popping worker one atomic step.
type jobQueue struct {
	buf        []Job // circular buffer
	head, tail int   // read/write indices
	size       int   // number of jobs currently buffered
}

func newJobQueue(capacity int) *jobQueue {
	if capacity <= 0 {
		capacity = initialQueueCapacity
	}
	return &jobQueue{buf: make([]Job, capacity)}
}

// Len returns the number of jobs waiting in the queue.
func (q *jobQueue) Len() int { return q.size }

// Push inserts a job at the tail, doubling the buffer when it is full.
func (q *jobQueue) Push(j Job) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[q.tail] = j
	q.tail++
	if q.tail == len(q.buf) {
		q.tail = 0
	}
	q.size++
}

// Pop removes and returns the oldest job.
//
// If the queue is empty, returns zero-value Job and false.
func (q *jobQueue) Pop() (Job, bool) {
	if q.size == 0 {
		return Job{}, false
	}
	j := q.buf[q.head]
	q.buf[q.head] = Job{} // release closure for GC
	q.head++
	if q.head == len(q.buf) {
		q.head = 0
	}
	q.size--
	return j, true
}

// Drain removes every queued job and returns them in FIFO order.
func (q *jobQueue) Drain() []Job {
	if q.size == 0 {
		return nil
	}
	out := make([]Job, 0, q.size)
	for {
		j, ok := q.Pop()
		if !ok {
			break
		}
		out = append(out, j)
	}
	q.head, q.tail = 0, 0
	return out
}

func (q *jobQueue) grow() {
	n := len(q.buf) * 2
	if n == 0 {
		n = initialQueueCapacity
	}
	buf := make([]Job, n)
	// unwrap the ring into the new buffer
	if q.size > 0 {
		if q.head < q.tail {
			copy(buf, q.buf[q.head:q.tail])
		} else {
			k := copy(buf, q.buf[q.head:])
			copy(buf[k:], q.buf[:q.tail])
		}
	}
	q.buf = buf
	q.head = 0
	q.tail = q.size
}
