package probe

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"ChainHarvest/internal/model"
)

// BatchHandler processes one received event batch.
type BatchHandler func(batch model.EventBatch)

// Subscriber receives relayed event batches from a NATS subject.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to the NATS server.
func NewSubscriber(natsURL, subject string) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", natsURL)
	return &Subscriber{nc: nc, subject: subject}, nil
}

// Start subscribes and invokes the handler for every decodable batch.
// Undecodable messages are logged and skipped.
func (s *Subscriber) Start(handler BatchHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var batch model.EventBatch
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			log.Printf("Error unmarshalling event batch: %v", err)
			return
		}
		handler(batch)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for event batches...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
	return nil
}
