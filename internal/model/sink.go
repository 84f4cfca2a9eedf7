package model

// Sink receives every event batch as it is consumed, for side channels such
// as the ClickHouse event archive or the NATS relay. Implementations are
// expected to tolerate being called once per checkpoint at stream rate.
type Sink interface {
	// Write hands one checkpoint's batch to the sink.
	Write(batch *EventBatch) error

	// Close flushes and releases the sink's resources.
	Close() error
}
