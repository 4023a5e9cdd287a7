package api

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsToSentinel(t *testing.T) {
	err := NewError(ErrCodeBusy, "queue has pending tasks").WithContext("pending", 3)
	assert.ErrorIs(t, err, ErrBusy)
	assert.NotErrorIs(t, err, ErrClosed)
	assert.Equal(t, "queue has pending tasks (context: map[pending:3])", err.Error())
	assert.Equal(t, "plain", NewError(ErrCodeInternal, "plain").Error())
	assert.NoError(t, NewError(ErrCodeInternal, "x").Unwrap())
}

func TestCodeOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want ErrorCode
	}{
		{nil, ErrCodeOK},
		{errors.Wrap(ErrInvalidArgument, "thread count"), ErrCodeInvalidArgument},
		{errors.Wrap(ErrBusy, "queues bound"), ErrCodeBusy},
		{fmt.Errorf("resize: %w", ErrPermission), ErrCodePermission},
		{errors.Wrap(ErrResourceExhausted, "capacity"), ErrCodeResourceExhausted},
		{errors.Wrap(ErrClosed, "registry"), ErrCodeClosed},
		{errors.Wrap(NewError(ErrCodeBusy, "inner"), "outer"), ErrCodeBusy},
		{errors.New("boom"), ErrCodeInternal},
	} {
		assert.Equal(t, tc.want, CodeOf(tc.err), "%v", tc.err)
	}
	assert.Equal(t, "resource_exhausted", ErrCodeResourceExhausted.String())
	assert.Equal(t, "code(42)", ErrorCode(42).String())
}
