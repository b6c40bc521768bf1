package worker

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/model"
)

type fakeWriter struct {
	err     error
	written []model.Exchange
}

func (w *fakeWriter) Create(_ context.Context, e *model.Exchange) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, *e)
	return nil
}

type ackRecord struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *ackRecord) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *ackRecord) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *ackRecord) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func delivery(body string, redelivered bool) (amqp.Delivery, *ackRecord) {
	rec := &ackRecord{}
	return amqp.Delivery{Acknowledger: rec, Body: []byte(body), Redelivered: redelivered}, rec
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		redelivered bool
		writeErr    error
		want        ackRecord
		written     int
	}{
		{"persisted", `{"session_id":"s1","question":"q","answer":"a"}`, false, nil, ackRecord{acked: true}, 1},
		{"undecodable dropped", `{"question":"q"}`, false, nil, ackRecord{nacked: true}, 0},
		{"write failure requeued", `{"session_id":"s1"}`, false, assert.AnError, ackRecord{nacked: true, requeued: true}, 0},
		{"second write failure dropped", `{"session_id":"s1"}`, true, assert.AnError, ackRecord{nacked: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &fakeWriter{err: tt.writeErr}
			w := NewExchangePersistWorker(nil, writer, "q", 0, nil)
			d, rec := delivery(tt.body, tt.redelivered)

			w.handle(context.Background(), d)

			assert.Equal(t, tt.want, *rec)
			assert.Len(t, writer.written, tt.written)
		})
	}
}

func TestPersist_DecodeErrorKind(t *testing.T) {
	w := NewExchangePersistWorker(nil, &fakeWriter{}, "q", 0, nil)

	err := w.persist(context.Background(), []byte("{"))
	require.Error(t, err)
	assert.True(t, isDecodeError(err))

	w = NewExchangePersistWorker(nil, &fakeWriter{err: assert.AnError}, "q", 0, nil)
	err = w.persist(context.Background(), []byte(`{"session_id":"s1"}`))
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, isDecodeError(err))
}

func TestClose_NotStarted(t *testing.T) {
	w := NewExchangePersistWorker(nil, &fakeWriter{}, "q", 0, nil)
	assert.NotPanics(t, w.Close)
}
