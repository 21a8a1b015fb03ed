package pipeline

// WorkItem is one unit of work passed from the producer to the consumer.
// It carries only its sequence number.
type WorkItem struct {
	Seq uint64
}
