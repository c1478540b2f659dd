// Package tracking forwards product analytics events to an external
// collector.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives identify, track and page calls. Implementations must not
// block the caller.
type Sink interface {
	Identify(id string, traits map[string]any)
	Track(event string, props map[string]any)
	Page(path string)
	// Reset forgets the identified user; later calls are anonymous.
	Reset()
}

type Nop struct{}

func (Nop) Identify(string, map[string]any) {}
func (Nop) Track(string, map[string]any)    {}
func (Nop) Page(string)                     {}
func (Nop) Reset()                          {}

const anonymousID = "anonymous"

type message struct {
	UUID       string         `json:"uuid"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties"`
	Timestamp  string         `json:"timestamp"`
}

type Options struct {
	Endpoint      string
	APIKey        string
	BatchSize     int
	QueueSize     int
	FlushInterval time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// CaptureClient batches events into the collector's POST /batch body. One
// background goroutine owns the batch and flushes it on size or interval.
type CaptureClient struct {
	endpoint  string
	apiKey    string
	batchSize int
	interval  time.Duration
	http      *http.Client
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.Mutex
	distinctID string

	msgs      chan message
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewCaptureClient(opts Options) *CaptureClient {
	c := &CaptureClient{
		endpoint:  strings.TrimSuffix(opts.Endpoint, "/") + "/batch",
		apiKey:    opts.APIKey,
		batchSize: opts.BatchSize,
		interval:  opts.FlushInterval,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		now:       time.Now,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if c.batchSize <= 0 {
		c.batchSize = 20
	}
	if c.interval <= 0 {
		c.interval = 5 * time.Second
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	size := opts.QueueSize
	if size <= 0 {
		size = 256
	}
	c.msgs = make(chan message, size)

	go c.loop()
	return c
}

func (c *CaptureClient) Identify(id string, traits map[string]any) {
	c.mu.Lock()
	c.distinctID = id
	c.mu.Unlock()

	c.enqueue("$identify", map[string]any{"$set": traits})
}

func (c *CaptureClient) Reset() {
	c.mu.Lock()
	c.distinctID = ""
	c.mu.Unlock()
}

func (c *CaptureClient) Track(event string, props map[string]any) {
	c.enqueue(event, props)
}

func (c *CaptureClient) Page(path string) {
	c.enqueue("$pageview", map[string]any{"$current_url": path})
}

func (c *CaptureClient) enqueue(event string, props map[string]any) {
	c.mu.Lock()
	id := c.distinctID
	c.mu.Unlock()
	if id == "" {
		id = anonymousID
	}

	m := message{
		UUID:       uuid.NewString(),
		Event:      event,
		DistinctID: id,
		Properties: props,
		Timestamp:  c.now().UTC().Format(time.RFC3339Nano),
	}

	select {
	case <-c.quit:
		return
	default:
	}
	select {
	case c.msgs <- m:
	default:
		c.logger.Warn("tracking: queue full, dropping event", zap.String("event", event))
	}
}

func (c *CaptureClient) loop() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var batch []message
	for {
		select {
		case m := <-c.msgs:
			batch = append(batch, m)
			if len(batch) >= c.batchSize {
				c.send(batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				c.send(batch)
				batch = nil
			}
		case <-c.quit:
			for {
				select {
				case m := <-c.msgs:
					batch = append(batch, m)
				default:
					if len(batch) > 0 {
						c.send(batch)
					}
					return
				}
			}
		}
	}
}

func (c *CaptureClient) send(batch []message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.post(ctx, batch); err != nil {
		c.logger.Warn("tracking: flush failed", zap.Int("events", len(batch)), zap.Error(err))
	}
}

func (c *CaptureClient) post(ctx context.Context, batch []message) error {
	body, err := json.Marshal(struct {
		APIKey string    `json:"api_key"`
		Batch  []message `json:"batch"`
	}{c.apiKey, batch})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("tracking: collector returned %d", resp.StatusCode)
	}
	return nil
}

// Close flushes buffered events and stops the background goroutine.
func (c *CaptureClient) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}
