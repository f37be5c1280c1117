package httpadapter

import (
	"net/http"

	"github.com/corvelia/finrag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidFormat),
		domain.IsKind(err, domain.ErrUnknownCompanyCode),
		domain.IsKind(err, domain.ErrUnknownDocType):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrExampleNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrIndexNotReady),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
