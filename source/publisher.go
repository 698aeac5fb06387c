package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes registry snapshots in the layout KafkaSource reads.
type KafkaPublisher struct {
	centers   messageWriter
	rooms     messageWriter
	published map[string]bool
	mutex     sync.Mutex
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return newKafkaPublisher(newWriter(cfg, cfg.CentersTopic), newWriter(cfg, cfg.RoomsTopic))
}

func newKafkaPublisher(centers, rooms messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		centers:   centers,
		rooms:     rooms,
		published: make(map[string]bool),
	}
}

func newWriter(cfg KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// PublishCenters writes one message per center and a tombstone for every center
// published before that is no longer present.
func (p *KafkaPublisher) PublishCenters(centers []CenterDoc) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	current := make(map[string]bool, len(centers))
	msgs := make([]kafka.Message, 0, len(centers))
	for _, c := range centers {
		value, err := json.Marshal(struct {
			Name string `json:"name"`
		}{c.Name})
		if err != nil {
			return fmt.Errorf("encode center %s: %w", c.ID, err)
		}
		current[c.ID] = true
		msgs = append(msgs, kafka.Message{Key: []byte(c.ID), Value: value})
	}
	for id := range p.published {
		if !current[id] {
			msgs = append(msgs, kafka.Message{Key: []byte(id)})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.centers.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish centers: %w", err)
	}
	p.published = current
	return nil
}

// PublishRooms writes the full room collection of one center as a single message.
func (p *KafkaPublisher) PublishRooms(centerID string, rooms []RoomDoc) error {
	if rooms == nil {
		rooms = []RoomDoc{}
	}
	value, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("encode rooms of %s: %w", centerID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rooms.WriteMessages(ctx, kafka.Message{Key: []byte(centerID), Value: value}); err != nil {
		return fmt.Errorf("publish rooms of %s: %w", centerID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.centers.Close(), p.rooms.Close())
}
