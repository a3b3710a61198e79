package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

func TestJobRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := encodeJob(IndexJob{Collection: "alpine-vault", RequestedAt: at})
	if err != nil {
		t.Fatalf("encodeJob() error = %v", err)
	}
	job, err := decodeJob(raw)
	if err != nil {
		t.Fatalf("decodeJob() error = %v", err)
	}
	if job.Collection != "alpine-vault" || !job.RequestedAt.Equal(at) {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestDecodeJobAcceptsBareName(t *testing.T) {
	job, err := decodeJob([]byte(" notes \n"))
	if err != nil || job.Collection != "notes" {
		t.Fatalf("got %+v, %v", job, err)
	}
}

func TestDecodeJobRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", `{"collection":""}`, `{"collection":`} {
		if _, err := decodeJob([]byte(raw)); err == nil {
			t.Fatalf("decodeJob(%q): expected error", raw)
		}
	}
	if _, err := encodeJob(IndexJob{}); err == nil {
		t.Fatalf("encodeJob: expected error for empty collection")
	}
}

func TestWrapUnavailable(t *testing.T) {
	err := wrapUnavailable(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if err := wrapUnavailable(errors.New("bad subject")); domain.IsKind(err, domain.ErrServiceUnavailable) {
		t.Fatalf("permanent error must pass through")
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must be ignored, got %+v", class)
	}
}
