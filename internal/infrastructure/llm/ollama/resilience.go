package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/infrastructure/resilience"
)

func classifyOllamaError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retry: false, TripBreaker: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Classification{Retry: true, TripBreaker: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Classification{Retry: true, TripBreaker: true}
		}
		return resilience.Classification{Retry: false, TripBreaker: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Classification{Retry: true, TripBreaker: true}
	}

	return resilience.Classification{Retry: false, TripBreaker: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	class := classifyOllamaError(err)
	if class.Retry || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
