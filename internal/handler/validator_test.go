package handler

import (
	"testing"

	"github.com/goevery/gateway/internal/ierr"
	"github.com/stretchr/testify/assert"
)

func TestRequestValidator(t *testing.T) {
	validator := NewRequestValidator()

	assert.NoError(t, validator.Validate(GroupRequest{GroupId: 7}))

	err := validator.Validate(GroupRequest{})
	assert.True(t, ierr.HasCode(err, ierr.ErrorCodeInvalidArgument))
	assert.ErrorContains(t, err, "invalid groupId")

	err = validator.Validate(ConversationRequest{ConversationId: -1})
	assert.ErrorContains(t, err, "invalid conversationId")

	err = validator.Validate(PublishRequest{Payload: []byte(`{}`)})
	assert.ErrorContains(t, err, "invalid topic: failed on required")
}
