package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/platform/rabbitmq"
)

type ExchangeWriter interface {
	Create(ctx context.Context, exchange *model.Exchange) error
}

// ExchangePersistWorker drains the exchange queue into MySQL. Undecodable
// messages are dropped; write failures are requeued once.
type ExchangePersistWorker struct {
	conn      *amqp.Connection
	repo      ExchangeWriter
	queueName string
	prefetch  int
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExchangePersistWorker(conn *amqp.Connection, repo ExchangeWriter, queueName string, prefetch int, logger *zap.Logger) *ExchangePersistWorker {
	if prefetch <= 0 {
		prefetch = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangePersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		prefetch:  prefetch,
		logger:    logger,
	}
}

func (w *ExchangePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("exchange deliveries closed", zap.String("queue", w.queueName))
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("exchange persist worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *ExchangePersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	switch err := w.persist(ctx, d.Body); {
	case err == nil:
		_ = d.Ack(false)
	case isDecodeError(err):
		w.logger.Error("drop undecodable exchange", zap.Error(err))
		_ = d.Nack(false, false)
	default:
		w.logger.Error("persist exchange failed", zap.Bool("redelivered", d.Redelivered), zap.Error(err))
		_ = d.Nack(false, !d.Redelivered)
	}
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return "decode exchange: " + e.err.Error() }

func isDecodeError(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

func (w *ExchangePersistWorker) persist(ctx context.Context, body []byte) error {
	exchange, err := rabbitmq.DecodeExchange(body)
	if err != nil {
		return decodeError{err: err}
	}
	return w.repo.Create(ctx, &exchange)
}

func (w *ExchangePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
