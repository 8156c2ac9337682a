package ces_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
	"github.com/goccy/go-json"
)

// pagedTransport serves total synthetic project records in pages of pageSize.
type pagedTransport struct {
	total    int
	pageSize int

	mu       sync.Mutex
	requests []ces.RequestDescriptor
	failPage int
}

func newPagedTransport(total, pageSize int) *pagedTransport {
	return &pagedTransport{total: total, pageSize: pageSize}
}

func (p *pagedTransport) Send(ctx context.Context, req ces.RequestDescriptor) (*ces.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	failPage := p.failPage
	p.mu.Unlock()

	page, ok := req.Page()
	if !ok {
		page = 1
	}

	if failPage != 0 && page == failPage {
		return nil, &ces.TransportError{Method: req.Method, URL: req.Path, Err: context.DeadlineExceeded}
	}

	items := make([]map[string]interface{}, 0, p.pageSize)

	for i := (page - 1) * p.pageSize; i < page*p.pageSize && i < p.total; i++ {
		items = append(items, map[string]interface{}{
			"id":            i + 1,
			"title":         fmt.Sprintf("Project %03d", i+1),
			"projectStatus": i%2 + 1,
			"startDate":     "2024-01-15T08:00:00Z",
			"endDate":       nil,
		})
	}

	body, err := json.Marshal(map[string]interface{}{
		"resultList": items,
		"page":       page,
		"pageSize":   p.pageSize,
		"totalCount": p.total,
	})
	if err != nil {
		return nil, err
	}

	return &ces.Response{StatusCode: 200, Body: body}, nil
}

func (p *pagedTransport) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.requests)
}

func (p *pagedTransport) pages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, 0, len(p.requests))

	for _, req := range p.requests {
		page, _ := req.Page()
		out = append(out, page)
	}

	return out
}

// staticTransport answers every request with the same body.
func staticTransport(body string, seen *[]ces.RequestDescriptor) ces.TransportFunc {
	return func(ctx context.Context, req ces.RequestDescriptor) (*ces.Response, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}

		return &ces.Response{StatusCode: 200, Body: []byte(body)}, nil
	}
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// recordingLogger captures log calls.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.log("debug", msg, fields)
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.log("info", msg, fields)
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("warn", msg, fields)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.log("error", msg, fields)
}

func (l *recordingLogger) at(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []logEntry

	for _, entry := range l.entries {
		if entry.level == level {
			out = append(out, entry)
		}
	}

	return out
}

func recordID(record *ces.Record) int64 {
	id, _ := record.Get("id")

	return id.(int64)
}
