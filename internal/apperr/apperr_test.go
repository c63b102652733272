package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesKind(t *testing.T) {
	cases := map[Code]Kind{
		TeamNotFound:            KindNotFound,
		NotTeamMember:           KindForbidden,
		ChannelPrivateForbidden: KindForbidden,
		InsufficientRole:        KindForbidden,
		DuplicateChannelName:    KindConflict,
		InvalidInput:            KindValidation,
		InvalidToken:            KindUnauthorized,
		StoreError:              KindInternal,
		Code("Unknown"):         KindInternal,
	}
	for code, kind := range cases {
		assert.Equal(t, kind, New(code, "x").Kind, string(code))
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	base := New(NotTeamMember, "not a team member")
	wrapped := fmt.Errorf("create channel: %w", base)

	require.True(t, Is(wrapped, NotTeamMember))
	require.False(t, Is(wrapped, InsufficientRole))
	require.Equal(t, KindForbidden, KindOf(wrapped))
	require.Equal(t, NotTeamMember, CodeOf(wrapped))
	require.Equal(t, "not a team member", MessageOf(wrapped))
}

func TestUnclassifiedErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, StoreError, CodeOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestStoreUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Store("insert message", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert message failed")
}
