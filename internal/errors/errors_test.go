package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("create message: %w", &ValidationError{Message: "empty"})

	assert.True(t, Is[*ValidationError](wrapped))
	assert.False(t, Is[*ValidationError](errors.New("other")))
	assert.Equal(t, "Validation error: empty", (&ValidationError{Message: "empty"}).Error())
}
