package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/infrastructure/resilience"
)

func classifyNATSError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retry: false, TripBreaker: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Classification{Retry: true, TripBreaker: true}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return resilience.Classification{Retry: true, TripBreaker: true}
	}

	return resilience.Classification{Retry: false, TripBreaker: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyNATSError(err)
	if class.Retry || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
