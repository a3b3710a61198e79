package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
)

const workerGroup = "index-workers"

// IndexJob asks a worker to rebuild one collection.
type IndexJob struct {
	Collection  string    `json:"collection"`
	RequestedAt time.Time `json:"requested_at"`
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	onLag    func(time.Duration)
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// OnQueueLag receives the delay between publish and delivery.
	OnQueueLag           func(time.Duration)
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("vault-quizbot"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		onLag:    options.OnQueueLag,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishIndexRequested(ctx context.Context, collection string) error {
	payload, err := encodeJob(IndexJob{Collection: collection, RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats_publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapUnavailable(err)
}

// SubscribeIndexRequested blocks until ctx is done. Messages of one
// subscription are delivered one at a time, which keeps rebuilds of a
// collection serialized within a worker.
func (q *Queue) SubscribeIndexRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		job, err := decodeJob(msg.Data)
		if err != nil {
			slog.Error("index_job_rejected", "error", err)
			return
		}
		if q.onLag != nil && !job.RequestedAt.IsZero() {
			q.onLag(time.Since(job.RequestedAt))
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, job.Collection); err != nil {
			slog.Error("index_job_failed", "collection", job.Collection, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeJob(job IndexJob) ([]byte, error) {
	if strings.TrimSpace(job.Collection) == "" {
		return nil, errors.New("index job without collection")
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal index job: %w", err)
	}
	return raw, nil
}

// decodeJob also accepts a bare collection name.
func decodeJob(data []byte) (IndexJob, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return IndexJob{}, errors.New("empty index job")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return IndexJob{Collection: trimmed}, nil
	}
	var job IndexJob
	if err := json.Unmarshal(data, &job); err != nil {
		return IndexJob{}, fmt.Errorf("decode index job: %w", err)
	}
	if strings.TrimSpace(job.Collection) == "" {
		return IndexJob{}, errors.New("index job without collection")
	}
	return job, nil
}
