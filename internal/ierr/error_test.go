package ierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("group not found")
	err := New(ErrorCodeNotFound, cause)

	assert.Equal(t, "NotFound: group not found", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(fmt.Errorf("lookup: %w", err), ErrorCodeNotFound))
	assert.False(t, HasCode(err, ErrorCodeInternal))
	assert.False(t, HasCode(cause, ErrorCodeNotFound))
}
