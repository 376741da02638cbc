// Implements the RequestQueue, which holds entanglement-generation
// requests waiting to be serviced. Requests are enqueued on arrival and
// serviced strictly First-Come-First-Served.

package linklayer

import (
	"fmt"
	"strings"
)

// QueuedRequest is one accepted request plus its agreed servicing terms.
type QueuedRequest struct {
	Req Request
	// Start is the agreed logical instant both peers begin servicing.
	Start int64
	// CreateID correlates all responses belonging to this request.
	CreateID int
}

// RequestQueue is a FIFO queue of requests waiting to be serviced. A later
// arrival is never started before the one ahead of it begins being
// synchronized.
type RequestQueue struct {
	queue []*QueuedRequest
}

// Enqueue adds a request to the back of the queue.
func (q *RequestQueue) Enqueue(r *QueuedRequest) {
	q.queue = append(q.queue, r)
}

// Len returns the number of queued requests.
func (q *RequestQueue) Len() int { return len(q.queue) }

// Peek returns the request at the front without removing it, or nil.
func (q *RequestQueue) Peek() *QueuedRequest {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Dequeue removes and returns the request at the front, or nil.
func (q *RequestQueue) Dequeue() *QueuedRequest {
	if len(q.queue) == 0 {
		return nil
	}
	r := q.queue[0]
	q.queue = q.queue[1:]
	return r
}

func (q *RequestQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, r := range q.queue {
		sb.WriteString(fmt.Sprintf("create=%d n=%d", r.CreateID, r.Req.Number))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
