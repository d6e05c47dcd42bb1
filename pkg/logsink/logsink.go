// Package logsink moves access log entries from Kafka into a search index.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"blog/pkg/models"
)

// Reader yields log messages. *kafka.Reader satisfies it.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Indexer stores one log document under id.
type Indexer interface {
	Index(ctx context.Context, id string, doc []byte) error
}

type ElasticIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewElastic(nodes []string, index string) (*ElasticIndexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: nodes})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticIndexer{es: es, index: index}, nil
}

func (e *ElasticIndexer) Index(ctx context.Context, id string, doc []byte) error {
	res, err := e.es.Index(
		e.index,
		bytes.NewReader(doc),
		e.es.Index.WithDocumentID(id),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index request failed: %s", res.Status())
	}
	return nil
}

type Keeper struct {
	r          Reader
	idx        Indexer
	numWorkers int
}

func New(r Reader, idx Indexer, numWorkers int) *Keeper {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Keeper{r: r, idx: idx, numWorkers: numWorkers}
}

// Run reads messages until ctx is cancelled and indexes them with a fixed pool of workers.
func (k *Keeper) Run(ctx context.Context) {
	jobs := make(chan kafka.Message, k.numWorkers*5)

	var wg sync.WaitGroup
	wg.Add(k.numWorkers)
	for workerID := 0; workerID < k.numWorkers; workerID++ {
		go func(id int) {
			defer wg.Done()
			k.worker(ctx, jobs, id)
		}(workerID)
	}

	log.Info("[logkeeper] accepting logs...")
	for {
		msg, err := k.r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			log.Errorf("[logkeeper] failed to read message from Kafka: %v", err)
			continue
		}
		log.Debugf("[logkeeper] received message: %s", string(msg.Value))

		select {
		case jobs <- msg:
		case <-ctx.Done():
		}
	}

	close(jobs)
	wg.Wait()
}

func (k *Keeper) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Infof("[logkeeper][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				log.Infof("[logkeeper][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}

			entry, err := k.store(ctx, msg)
			if err != nil {
				log.Errorf("[logkeeper][workerID:%d] %v", workerID, err)
				continue
			}
			log.Infof("[logkeeper][workerID:%d][%s] log entry indexed", workerID, shorten(entry.RequestID))
		}
	}
}

func (k *Keeper) store(ctx context.Context, msg kafka.Message) (models.LogEntry, error) {
	var entry models.LogEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		return entry, fmt.Errorf("failed to unmarshal log entry: %w", err)
	}

	if err := k.idx.Index(ctx, entry.Service+entry.RequestID, msg.Value); err != nil {
		return entry, fmt.Errorf("failed to index document: %w", err)
	}
	return entry, nil
}

func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
