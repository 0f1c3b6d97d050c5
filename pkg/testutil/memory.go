package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ajitpratap0/shapescan/pkg/schema"
	"go.mongodb.org/mongo-driver/bson"
)

// MemorySource is an in-memory schema.DocumentSource. Cursors yield every
// stored document regardless of the requested limit, so callers can verify
// that they stop reading on their own.
type MemorySource struct {
	mu         sync.Mutex
	names      []string
	docs       map[string][]bson.D
	listErr    error
	sampleErrs map[string]error
	readErrs   map[string]error
	decodeErrs map[string]error
	delays     map[string]time.Duration
	limits     map[string]int
	open       int
	maxOpen    int
}

var _ schema.DocumentSource = (*MemorySource)(nil)

// NewMemorySource creates an empty source
func NewMemorySource() *MemorySource {
	return &MemorySource{
		docs:       make(map[string][]bson.D),
		sampleErrs: make(map[string]error),
		readErrs:   make(map[string]error),
		decodeErrs: make(map[string]error),
		delays:     make(map[string]time.Duration),
		limits:     make(map[string]int),
	}
}

// Add appends documents to a collection, creating it on first use
func (m *MemorySource) Add(collection string, docs ...bson.D) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[collection]; !ok {
		m.names = append(m.names, collection)
	}
	m.docs[collection] = append(m.docs[collection], docs...)
	return m
}

// FailList makes ListCollections fail with err
func (m *MemorySource) FailList(err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
	return m
}

// FailSample makes Sample fail with err for collection
func (m *MemorySource) FailSample(collection string, err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleErrs[collection] = err
	return m
}

// FailRead makes the cursor of collection fail with err once its documents
// are exhausted
func (m *MemorySource) FailRead(collection string, err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[collection] = err
	return m
}

// FailDecode makes every Decode of collection fail with err
func (m *MemorySource) FailDecode(collection string, err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decodeErrs[collection] = err
	return m
}

// Delay makes every Next of collection wait d, or until its context is done
func (m *MemorySource) Delay(collection string, d time.Duration) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[collection] = d
	return m
}

// ListCollections returns the collections in insertion order
func (m *MemorySource) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.names...), ctx.Err()
}

// Sample opens a cursor over the documents of collection. Unknown
// collections yield no documents.
func (m *MemorySource) Sample(ctx context.Context, collection string, limit int) (schema.DocumentCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.sampleErrs[collection]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.limits[collection] = limit
	m.open++
	if m.open > m.maxOpen {
		m.maxOpen = m.open
	}
	return &memoryCursor{
		source:    m,
		docs:      m.docs[collection],
		pos:       -1,
		readErr:   m.readErrs[collection],
		decodeErr: m.decodeErrs[collection],
		delay:     m.delays[collection],
	}, nil
}

// Limit returns the limit last requested for collection
func (m *MemorySource) Limit(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits[collection]
}

// OpenCursors returns the number of cursors not yet closed
func (m *MemorySource) OpenCursors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// MaxOpenCursors returns the highest number of cursors open at once
func (m *MemorySource) MaxOpenCursors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxOpen
}

type memoryCursor struct {
	source    *MemorySource
	docs      []bson.D
	pos       int
	err       error
	readErr   error
	decodeErr error
	delay     time.Duration
	closed    bool
}

func (c *memoryCursor) Next(ctx context.Context) bool {
	if c.err != nil || c.closed {
		return false
	}
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			c.err = ctx.Err()
			return false
		case <-time.After(c.delay):
		}
	}
	if c.pos+1 >= len(c.docs) {
		c.err = c.readErr
		return false
	}
	c.pos++
	return true
}

func (c *memoryCursor) Decode() (bson.D, error) {
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	return c.docs[c.pos], nil
}

func (c *memoryCursor) Err() error {
	return c.err
}

func (c *memoryCursor) Close(context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.source.mu.Lock()
	c.source.open--
	c.source.mu.Unlock()
	return nil
}
