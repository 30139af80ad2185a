package jobsys

import "testing"

func tagged(i int, out *[]int) Job {
	return Job{Fn: func() { *out = append(*out, i) }}
}

func TestJobQueueFIFOAcrossGrowth(t *testing.T) {
	q := newJobQueue(4)
	var got []int

	// advance head so the ring wraps before it has to grow
	for range 3 {
		q.Push(tagged(-1, &got))
	}
	for range 3 {
		if _, ok := q.Pop(); !ok {
			t.Fatal("pop from non-empty queue failed")
		}
	}

	const n = 37
	for i := range n {
		q.Push(tagged(i, &got))
	}
	if q.Len() != n {
		t.Fatalf("Len = %d; want %d", q.Len(), n)
	}

	for {
		j, ok := q.Pop()
		if !ok {
			break
		}
		j.Fn()
	}
	if len(got) != n {
		t.Fatalf("popped %d jobs; want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d; want %d", i, v, i)
		}
	}
}

func TestJobQueueDrain(t *testing.T) {
	q := newJobQueue(2)
	var got []int
	for i := range 5 {
		q.Push(tagged(i, &got))
	}

	jobs := q.Drain()
	if len(jobs) != 5 {
		t.Fatalf("Drain returned %d jobs; want 5", len(jobs))
	}
	if q.Len() != 0 {
		t.Fatalf("Len after Drain = %d; want 0", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop after Drain returned a job")
	}
	for _, j := range jobs {
		j.Fn()
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("drained order[%d] = %d; want %d", i, v, i)
		}
	}

	// queue stays usable
	q.Push(tagged(99, &got))
	if j, ok := q.Pop(); !ok || j.Fn == nil {
		t.Fatal("queue unusable after Drain")
	}
}

func TestJobQueueEmptyDrain(t *testing.T) {
	q := newJobQueue(0)
	if jobs := q.Drain(); jobs != nil {
		t.Fatalf("Drain on empty queue = %v; want nil", jobs)
	}
}
