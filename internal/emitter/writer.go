package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// WriterEmitter writes every successful snapshot as one JSON line.
type WriterEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterEmitter creates an emitter writing to w.
func NewWriterEmitter(w io.Writer) *WriterEmitter {
	return &WriterEmitter{enc: json.NewEncoder(w)}
}

func (e *WriterEmitter) Emit(_ context.Context, s Snapshot) error {
	if s.Error != nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(s); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (e *WriterEmitter) Close() error {
	return nil
}
