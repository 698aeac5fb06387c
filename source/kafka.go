package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wfunc/roomboard/logger"
)

// KafkaConfig locates the two compacted topics that carry the center and room snapshots.
type KafkaConfig struct {
	Brokers      []string
	CentersTopic string
	RoomsTopic   string
	GroupID      string
}

// messageReader is the subset of *kafka.Reader the source consumes.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource replays the centers topic (key = center id, value = {"name": ...},
// empty value = tombstone) and the rooms topic (key = center id, value = JSON array
// of room documents) into an in-memory cache that watchers subscribe to.
type KafkaSource struct {
	cache   *MemorySource
	centers *centerIndex
	readers []messageReader
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	once    sync.Once
}

func NewKafkaSource(cfg KafkaConfig) *KafkaSource {
	return newKafkaSource(newReader(cfg, cfg.CentersTopic), newReader(cfg, cfg.RoomsTopic))
}

func newKafkaSource(centers, rooms messageReader) *KafkaSource {
	return &KafkaSource{
		cache:   NewMemorySource(),
		centers: newCenterIndex(),
		readers: []messageReader{centers, rooms},
	}
}

func newReader(cfg KafkaConfig, topic string) *kafka.Reader {
	readerConfig := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}
	if cfg.GroupID == "" {
		// Without a group the whole compacted log is replayed on start.
		readerConfig.StartOffset = kafka.FirstOffset
	}
	return kafka.NewReader(readerConfig)
}

// Start consumes both topics until ctx is cancelled or Close is called.
func (k *KafkaSource) Start(ctx context.Context) {
	ctx, k.cancel = context.WithCancel(ctx)
	k.wg.Add(2)
	go k.consume(ctx, k.readers[0], k.handleCenterMessage)
	go k.consume(ctx, k.readers[1], k.handleRoomsMessage)
}

func (k *KafkaSource) WatchCenters(handler CentersHandler) Cancel {
	return k.cache.WatchCenters(handler)
}

func (k *KafkaSource) WatchRooms(centerID string, handler RoomsHandler) Cancel {
	return k.cache.WatchRooms(centerID, handler)
}

// Close stops the consumers and closes the readers. Cached snapshots stay readable.
func (k *KafkaSource) Close() error {
	var errs []error
	k.once.Do(func() {
		if k.cancel != nil {
			k.cancel()
		}
		for _, r := range k.readers {
			if err := r.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		k.wg.Wait()
	})
	return errors.Join(errs...)
}

func (k *KafkaSource) consume(ctx context.Context, reader messageReader, handle func(kafka.Message) error) {
	defer k.wg.Done()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			logger.Log.Warnf("kafka source: read failed: %v", err)
			k.cache.Fail(fmt.Errorf("kafka read: %w", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if err := handle(msg); err != nil {
			logger.Log.Warnf("kafka source: skipping message topic=%s offset=%d: %v", msg.Topic, msg.Offset, err)
		}
	}
}

func (k *KafkaSource) handleCenterMessage(msg kafka.Message) error {
	id := string(msg.Key)
	if id == "" {
		return errors.New("center message without key")
	}
	if len(msg.Value) == 0 {
		return k.cache.PublishCenters(k.centers.remove(id))
	}
	var doc CenterDoc
	if err := json.Unmarshal(msg.Value, &doc); err != nil {
		return fmt.Errorf("decode center %s: %w", id, err)
	}
	doc.ID = id
	return k.cache.PublishCenters(k.centers.upsert(doc))
}

func (k *KafkaSource) handleRoomsMessage(msg kafka.Message) error {
	id := string(msg.Key)
	if id == "" {
		return errors.New("rooms message without key")
	}
	var rooms []RoomDoc
	if len(msg.Value) > 0 {
		if err := json.Unmarshal(msg.Value, &rooms); err != nil {
			return fmt.Errorf("decode rooms of %s: %w", id, err)
		}
	}
	return k.cache.PublishRooms(id, rooms)
}

// centerIndex keeps centers in first-seen order.
type centerIndex struct {
	order []string
	docs  map[string]CenterDoc
	mutex sync.Mutex
}

func newCenterIndex() *centerIndex {
	return &centerIndex{docs: make(map[string]CenterDoc)}
}

func (c *centerIndex) upsert(doc CenterDoc) []CenterDoc {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.docs[doc.ID]; !ok {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
	return c.listLocked()
}

func (c *centerIndex) remove(id string) []CenterDoc {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.docs[id]; ok {
		delete(c.docs, id)
		for i, existing := range c.order {
			if existing == id {
				c.order = append(c.order[:i:i], c.order[i+1:]...)
				break
			}
		}
	}
	return c.listLocked()
}

func (c *centerIndex) listLocked() []CenterDoc {
	list := make([]CenterDoc, 0, len(c.order))
	for _, id := range c.order {
		list = append(list, c.docs[id])
	}
	return list
}
