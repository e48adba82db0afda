package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"tourbook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	failures int // writes left to fail with err; 0 fails every write
	attempts int
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	if err := w.err; err != nil {
		if w.failures > 0 {
			w.failures--
			if w.failures == 0 {
				w.err = nil
			}
		}
		return err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) writeAttempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

type fakeReader struct {
	queue     chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{queue: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.queue <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.queue:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_PublishSetsKeyAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "booking-jobs")

	msg, err := NewMessage().
		WithKey("booking-1").
		WithEventType("send-confirmation").
		WithValue(map[string]string{"bookingId": "booking-1"}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := w.written()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if string(got[0].Key) != "booking-1" {
		t.Errorf("key = %q", got[0].Key)
	}
	if header(got[0], HeaderEventType) != "send-confirmation" {
		t.Errorf("event-type header missing")
	}
	if header(got[0], HeaderEventID) == "" {
		t.Errorf("event-id header should be generated")
	}
}

func TestProducer_RejectsInvalidAndClosed(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t")

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_WriteErrorIsReturned(t *testing.T) {
	brokerErr := errors.New("dial tcp: connection refused")
	p := newProducer(&fakeWriter{err: brokerErr}, "t")

	err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")})
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected broker error to be wrapped, got %v", err)
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t")
	var order []string
	for _, name := range []string{"first", "second"} {
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware order = %v", order)
	}
}

func runConsumer(t *testing.T, c *Consumer, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !until() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("consumer did not reach expected state")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() returned %v, want context.Canceled", err)
	}
}

func TestConsumer_RetriesTransientThenCommits(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("b1"), Value: []byte("{}"), Offset: 7})
	dlq := &fakeWriter{}

	var (
		mu    sync.Mutex
		calls int
	)
	handler := func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return NewTransientError("smtp busy", errors.New("timeout"))
		}
		return nil
	}

	c := newConsumer(reader, dlq, "booking-jobs", "notifications", 3, time.Millisecond, handler, logger.Discard())
	runConsumer(t, c, func() bool { return len(reader.commits()) == 1 })

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if len(dlq.written()) != 0 {
		t.Errorf("successful message must not be dead-lettered")
	}
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("b2"), Value: []byte("{}"), Offset: 3})
	dlq := &fakeWriter{}

	calls := 0
	handler := func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("unknown job kind", nil)
	}

	c := newConsumer(reader, dlq, "booking-jobs", "notifications", 3, time.Millisecond, handler, logger.Discard())
	runConsumer(t, c, func() bool { return len(reader.commits()) == 1 })

	if calls != 1 {
		t.Errorf("permanent failure must not be retried, calls = %d", calls)
	}
	dead := dlq.written()
	if len(dead) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dead))
	}
	if header(dead[0], HeaderOriginalTopic) != "booking-jobs" || header(dead[0], HeaderDLQGroup) != "notifications" {
		t.Errorf("DLQ headers missing: %v", dead[0].Headers)
	}
	if header(dead[0], HeaderDLQError) == "" {
		t.Errorf("DLQ error header missing")
	}
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("b3"), Value: []byte("{}")})
	dlq := &fakeWriter{}

	calls := 0
	handler := func(ctx context.Context, msg Message) error {
		calls++
		return errors.New("i/o timeout")
	}

	c := newConsumer(reader, dlq, "t", "g", 2, time.Millisecond, handler, logger.Discard())
	runConsumer(t, c, func() bool { return len(reader.commits()) == 1 })

	if calls != 3 {
		t.Errorf("calls = %d, want initial attempt plus 2 retries", calls)
	}
	if got := dlq.written(); len(got) != 1 || header(got[0], HeaderRetryCount) != "2" {
		t.Errorf("expected one DLQ message with retry-count 2, got %v", got)
	}
}

var errDLQDown = errors.New("broker down")

func TestConsumer_DLQOutageHoldsCommit(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("b4"), Value: []byte("{}"), Offset: 11})
	dlq := &fakeWriter{err: errDLQDown}

	handler := func(ctx context.Context, msg Message) error {
		return NewTransientError("smtp busy", errors.New("timeout"))
	}

	c := newConsumer(reader, dlq, "booking-jobs", "notifications", 2, time.Millisecond, handler, logger.Discard())
	runConsumer(t, c, func() bool { return dlq.writeAttempts() >= 3 })

	if got := reader.commits(); len(got) != 0 {
		t.Errorf("offset committed while the DLQ was down: %v", got)
	}
	if got := dlq.written(); len(got) != 0 {
		t.Errorf("DLQ writes = %d, want 0", len(got))
	}
}

func TestConsumer_DLQRecoveryThenCommits(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("b5"), Value: []byte("{}"), Offset: 12})
	dlq := &fakeWriter{err: errDLQDown, failures: 2}

	calls := 0
	handler := func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("unknown job kind", nil)
	}

	c := newConsumer(reader, dlq, "booking-jobs", "notifications", 3, time.Millisecond, handler, logger.Discard())
	runConsumer(t, c, func() bool { return len(reader.commits()) == 1 })

	if calls != 1 {
		t.Errorf("handler must not rerun while the DLQ retries, calls = %d", calls)
	}
	if got := dlq.writeAttempts(); got != 3 {
		t.Errorf("DLQ attempts = %d, want 3", got)
	}
	if got := dlq.written(); len(got) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(got))
	}
	if got := reader.commits(); got[0] != 12 {
		t.Errorf("committed offsets = %v, want [12]", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"tagged transient", NewTransientError("x", nil), ErrorTypeTransient},
		{"tagged permanent", NewPermanentError("x", errors.New("timeout")), ErrorTypePermanent},
		{"deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"network text", errors.New("read: Connection Reset by peer"), ErrorTypeTransient},
		{"other", errors.New("json: cannot unmarshal"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	for range 12 {
		msg.IncrementRetryCount()
	}
	if msg.GetRetryCount() != 12 {
		t.Errorf("retry count = %d, want 12", msg.GetRetryCount())
	}
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}
