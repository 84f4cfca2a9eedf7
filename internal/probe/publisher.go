package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"ChainHarvest/internal/model"
)

// Publisher relays extracted event batches to a NATS subject. It implements
// model.Sink so the consumer loop can forward batches as they arrive.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server and returns a publisher for the
// given subject.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Publisher{nc: nc, subject: subject}, nil
}

// Write serializes one checkpoint's batch to JSON and publishes it.
func (p *Publisher) Write(batch *model.EventBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			return err
		}
		log.Println("NATS connection drained and closed.")
	}
	return nil
}
