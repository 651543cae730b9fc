package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("The body was empty!")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "The body was empty!", err.Message)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("The sender: X is not found!")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus())
	assert.Contains(t, err.Error(), "not_found")
}

func TestRejectedError(t *testing.T) {
	cause := fmt.Errorf("not an admin")
	err := RejectedError(cause)

	assert.Equal(t, TypeRejected, err.Type)
	assert.Equal(t, "Something is wrong, please see the details: not an admin", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus())
}

func TestDeliveryError(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := DeliveryError("failed to send message", cause)

	assert.Equal(t, TypeDelivery, err.Type)
	assert.Equal(t, "failed to send message: socket closed", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Equal(t, ErrorResponse{Status: false, Message: "failed to send message: socket closed"}, err.ToResponse())
}

func TestWithCauseKeepsMessage(t *testing.T) {
	cause := errors.New("bad code")
	err := DeliveryError("That invite code seems to be invalid.", nil).WithCause(cause)

	assert.Equal(t, "That invite code seems to be invalid.", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Nil(t, err.Cause)
	assert.NotContains(t, err.Error(), "<nil>")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestWithField(t *testing.T) {
	err := NotFoundError("missing").WithField("sender", "abc").WithField("group", "Team")

	assert.Equal(t, "abc", err.Context["sender"])
	assert.Equal(t, "Team", err.Context["group"])
}

func TestWithField_NilContext(t *testing.T) {
	err := &Error{Type: TypeInternal, Message: "x"}
	err.WithField("k", "v")
	assert.Equal(t, "v", err.Context["k"])
}

func TestToResponse(t *testing.T) {
	resp := NotFoundError("The group: Team is not found!").WithField("sender", "abc").ToResponse()

	assert.False(t, resp.Status)
	assert.Equal(t, "The group: Team is not found!", resp.Message)
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := InternalError("wrapped", fmt.Errorf("layer: %w", sentinel))

	assert.True(t, errors.Is(err, sentinel))
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("already structured", func(t *testing.T) {
		original := ValidationError("bad")
		wrapped := fmt.Errorf("handler: %w", original)

		got := AsStructuredError(wrapped)
		require.NotNil(t, got)
		assert.Same(t, original, got)
	})

	t.Run("plain error", func(t *testing.T) {
		got := AsStructuredError(errors.New("boom"))
		require.NotNil(t, got)
		assert.Equal(t, TypeInternal, got.Type)
		assert.Equal(t, "internal server error", got.Message)
	})
}
