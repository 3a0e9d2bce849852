package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
)

func TestKindOf_UnclassifiedErrorIsFatal(t *testing.T) {
	assert.Equal(t, failure.Fatal, failure.KindOf(errors.New("boom")))
}

func TestKindOf_FindsWrappedKind(t *testing.T) {
	err := fmt.Errorf("charge: %w", failure.New(failure.Retryable, "server busy"))

	assert.Equal(t, failure.Retryable, failure.KindOf(err))
	assert.True(t, failure.IsRetryable(err))
	assert.True(t, errors.Is(err, failure.ErrRetryable))
	assert.False(t, errors.Is(err, failure.ErrConflict))
}

func TestError_MessageIncludesOpAndCode(t *testing.T) {
	err := &failure.Error{Kind: failure.Conflict, Code: "E00039", Op: "create profile", Message: "A duplicate record already exists."}

	assert.Equal(t, "create profile: A duplicate record already exists. (E00039)", err.Error())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "bad_input", failure.BadInput.String())
	assert.Equal(t, "fatal", failure.Kind(42).String())
}
