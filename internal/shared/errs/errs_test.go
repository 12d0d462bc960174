package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfKind(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindAuthenticationRequired, ErrAuthenticationRequired},
		{KindPermissionDenied, ErrPermissionDenied},
		{KindNotFound, ErrNotFound},
		{KindValidation, ErrValidation},
		{KindTransport, ErrTransport},
		{KindTimeout, ErrTimeout},
		{KindBackendUnavailable, ErrBackendUnavailable},
		{KindInvariantViolation, ErrInvariantViolation},
		{KindRemote, ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := New(tt.kind, "op", "boom")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.NotErrorIs(t, err, errors.New("boom"))
		})
	}
}

func TestErrorDoesNotMatchOtherKinds(t *testing.T) {
	err := NotFound("apps.getAppInfo", "application")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestWrappedKindSurvivesFmtWrap(t *testing.T) {
	inner := PermissionDenied("filesystem.writeFile", "filesystem.write.*")
	outer := fmt.Errorf("save document: %w", inner)

	assert.ErrorIs(t, outer, ErrPermissionDenied)
	assert.Equal(t, KindPermissionDenied, KindOf(outer))
	assert.Equal(t, `missing permission "filesystem.write.*"`, Message(outer))
}

func TestErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindTransport, "auth.login", cause)

	assert.Equal(t, "auth.login: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	withMsg := &Error{Kind: KindTransport, Op: "auth.login", Message: "request failed", Err: cause}
	assert.Equal(t, "auth.login: request failed: connection refused", withMsg.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}
