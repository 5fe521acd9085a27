package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/set-night/tokobot/internal/domain"
)

// TraceSink is a durable destination for interaction records.
type TraceSink interface {
	Write(ctx context.Context, rec domain.InteractionRecord) error
	Close() error
}

// Recorder appends interaction records to its sinks from a single writer
// goroutine. Record never blocks the caller and never returns an error;
// failures are logged.
type Recorder struct {
	sinks []TraceSink
	queue chan domain.InteractionRecord
	done  chan struct{}
	now   func() time.Time

	dropped atomic.Uint64

	mu         sync.RWMutex
	closed     bool
	closeOnce  sync.Once
	sinksOnce  sync.Once
	sinksError error
}

func NewRecorder(queueSize int, sinks ...TraceSink) *Recorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	r := &Recorder{
		sinks: sinks,
		queue: make(chan domain.InteractionRecord, queueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	go r.run()
	return r
}

// Record enqueues one exchange. Payload sizes are computed here.
func (r *Recorder) Record(conversationID, question, answer string, duration time.Duration) {
	rec := domain.NewInteractionRecord(r.now(), conversationID, question, answer, duration)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		slog.Warn("recorder closed, dropping interaction", "conversation_id", conversationID)
		return
	}
	select {
	case r.queue <- rec:
	default:
		n := r.dropped.Add(1)
		slog.Error("interaction queue full, dropping interaction",
			"conversation_id", conversationID,
			"dropped_total", n,
		)
	}
}

// Dropped is the number of records that never reached the sinks because the
// queue was full or the recorder was closed.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		for _, sink := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := sink.Write(ctx, rec); err != nil {
				slog.Error("record interaction",
					"sink", fmt.Sprintf("%T", sink),
					"conversation_id", rec.ConversationID,
					"error", err,
				)
			}
			cancel()
		}
	}
}

// Close stops accepting records, waits for queued ones to be written and
// closes the sinks. It is safe to call more than once.
func (r *Recorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})

	select {
	case <-r.done:
	case <-ctx.Done():
		return fmt.Errorf("drain interaction queue: %w", ctx.Err())
	}

	r.sinksOnce.Do(func() {
		var errs []error
		for _, sink := range r.sinks {
			if err := sink.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.sinksError = errors.Join(errs...)
	})
	return r.sinksError
}

// CSVHeader is the first line of a new trace file.
var CSVHeader = []string{"Timestamp", "Question", "Answer", "DurationMs", "QuestionKB", "AnswerKB"}

var fieldSanitizer = strings.NewReplacer(",", " ", "\"", " ", "\n", " ", "\r", " ")

// SanitizeField replaces the CSV delimiters in s with spaces so every record
// has exactly len(CSVHeader) unquoted fields.
func SanitizeField(s string) string {
	return strings.TrimSpace(fieldSanitizer.Replace(s))
}

func kilobytes(n int) string {
	return decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(1024)).StringFixed(3)
}

// CSVSink appends records to a CSV file, flushing after every record.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// OpenCSVSink opens path for appending and writes the header when the file
// is new or empty.
func OpenCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat trace file: %w", err)
	}

	s := &CSVSink{file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := s.writeRow(CSVHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write trace header: %w", err)
		}
	}
	return s, nil
}

func (s *CSVSink) Write(_ context.Context, rec domain.InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRow([]string{
		rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		SanitizeField(rec.Question),
		SanitizeField(rec.Answer),
		strconv.FormatInt(rec.Duration.Milliseconds(), 10),
		kilobytes(rec.QuestionBytes),
		kilobytes(rec.AnswerBytes),
	})
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("sync trace file: %w", err)
	}
	return s.file.Close()
}

// InteractionStore persists interaction records.
type InteractionStore interface {
	SaveInteraction(ctx context.Context, rec domain.InteractionRecord) error
}

// StoreSink writes records to the database.
type StoreSink struct {
	store InteractionStore
}

func NewStoreSink(store InteractionStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Write(ctx context.Context, rec domain.InteractionRecord) error {
	return s.store.SaveInteraction(ctx, rec)
}

func (s *StoreSink) Close() error { return nil }
