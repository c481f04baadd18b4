package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", DataNotFound("statistics", "no rows for %s", "PYPL"))

	assert.True(t, errors.Is(err, ErrDataNotFound))
	assert.False(t, errors.Is(err, ErrMalformedReply))
	assert.Equal(t, KindDataNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "statistics: no rows for PYPL")
}

func TestCompletionFailureUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := CompletionFailure("openai", cause)

	assert.True(t, errors.Is(err, ErrCompletionFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindCompletionFailure, KindOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, KindInvalidParameter, KindOf(ErrInvalidParameter))
}
