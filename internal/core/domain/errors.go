package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat: a source name violates its naming-convention contract.
	ErrInvalidFormat = errors.New("invalid source format")
	// ErrUnknownCompanyCode: lookup miss in the closed company-code table.
	ErrUnknownCompanyCode = errors.New("unknown company code")
	// ErrUnknownDocType: document type has no registered index.
	ErrUnknownDocType = errors.New("unknown document type")
	// ErrIndexNotReady: the target index was absent; schemas have been
	// provisioned and the batch must be retried.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrJudgeParse: judge model output failed schema validation.
	ErrJudgeParse = errors.New("judge output parse failure")
	// ErrExternalCall: an embedding, index, rerank or LLM round-trip failed.
	ErrExternalCall = errors.New("external call failure")

	ErrInvalidInput    = errors.New("invalid input")
	ErrExampleNotFound = errors.New("evaluation example not found")
	ErrTemporary       = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
