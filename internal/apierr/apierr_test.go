package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_SatisfiesErrorInterface(t *testing.T) {
	var err error = New(RoomNotFound, "room ABCD not found")
	assert.EqualError(t, err, "room ABCD not found")
}

func TestErrors_Is_MatchesOnKind(t *testing.T) {
	a := New(NotHost, "caller is not the host")
	b := New(NotHost, "different message, same kind")

	assert.True(t, errors.Is(a, b))
}

func TestErrors_Is_DifferentKindsDontMatch(t *testing.T) {
	a := New(NotHost, "x")
	b := New(RoomFull, "x")

	assert.False(t, errors.Is(a, b))
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(New(NameTaken, "taken"))
	assert.True(t, ok)
	assert.Equal(t, NameTaken, kind)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}
