package activity

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Record captures one blocked request.
type Record struct {
	Time time.Time `json:"time"`
	URL  string    `json:"url"`
	Host string    `json:"host"`
	Rule string    `json:"rule,omitempty"`
}

// ISink receives block records. Publish must never block the caller, checks
// happen on the request path.
type ISink interface {
	Publish(ctx context.Context, rec Record)
}

// RingSink keeps the most recent records in a fixed ring and drops the oldest
// once full.
type RingSink struct {
	lock  sync.Mutex
	buf   []Record
	next  int
	count int
}

func NewRingSink(size int) *RingSink {
	if size <= 0 {
		size = 256
	}
	return &RingSink{buf: make([]Record, size)}
}

func (s *RingSink) Publish(ctx context.Context, rec Record) {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	s.lock.Lock()
	s.buf[s.next] = rec
	s.next = (s.next + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
	s.lock.Unlock()
	logutil.GetLogger(ctx).Debug("request blocked",
		zap.String("url", rec.URL), zap.String("host", rec.Host))
}

// Recent returns up to limit records, newest first.
func (s *RingSink) Recent(limit int) []Record {
	s.lock.Lock()
	defer s.lock.Unlock()
	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	out := make([]Record, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (s.next - 1 - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	return out
}

func (s *RingSink) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.count
}
