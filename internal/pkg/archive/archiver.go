// Package archive keeps a copy of every verified Payme callback body in
// object storage. Uploads run in the background and never delay a response.
package archive

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/futapp/futapp-api/internal/pkg/payme"
)

const uploadTimeout = 30 * time.Second

type job struct {
	key      string
	body     []byte
	metadata map[string]string
}

// Archiver is a payme.Observer that queues verified payloads for upload.
type Archiver struct {
	store  ObjectStore
	prefix string
	queue  chan job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewArchiver starts the upload worker. queueSize bounds the number of
// payloads waiting; when the queue is full new payloads are dropped.
func NewArchiver(store ObjectStore, prefix string, queueSize int) *Archiver {
	if queueSize <= 0 {
		queueSize = 256
	}
	a := &Archiver{
		store:  store,
		prefix: prefix,
		queue:  make(chan job, queueSize),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Archiver) Observe(ctx context.Context, o payme.Outcome) {
	if !o.Authenticated || len(o.Body) == 0 {
		return
	}

	j := job{
		key:  ObjectKey(a.prefix, o),
		body: append([]byte(nil), o.Body...),
		metadata: map[string]string{
			"method":       o.Method,
			"payme-id":     o.ProviderTxID,
			"request-id":   o.RequestID,
			"result-code":  strconv.Itoa(o.Code),
			"payload-hash": o.PayloadHash,
		},
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- j:
	default:
		log.Warnf("[Archive] Queue full, dropping payload %s", j.key)
	}
}

// Close stops accepting payloads and waits until queued uploads finish or
// ctx expires.
func (a *Archiver) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for j := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		if err := a.store.Put(ctx, j.key, j.body, j.metadata); err != nil {
			log.Errorf("[Archive] Upload of %s failed: %v", j.key, err)
		}
		cancel()
	}
}

// ObjectKey builds prefix/YYYY/MM/DD/<unix-ms>-<method>-<hash>.json.
func ObjectKey(prefix string, o payme.Outcome) string {
	t := o.ReceivedAt.UTC()
	method := o.Method
	if method == "" {
		method = "unknown"
	}
	hash := o.PayloadHash
	if len(hash) > 16 {
		hash = hash[:16]
	}
	return fmt.Sprintf("%s%04d/%02d/%02d/%d-%s-%s.json", prefix, t.Year(), t.Month(), t.Day(), t.UnixMilli(), method, hash)
}
