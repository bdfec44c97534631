package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	assert.Equal(t, Generate("a", "b"), Generate("a", "b"))
	assert.NotEqual(t, Generate("a", "b"), Generate("b", "a"))
	// separator prevents concatenation collisions
	assert.NotEqual(t, Generate("ab", "c"), Generate("a", "bc"))
	assert.Len(t, Generate("x"), 64)
}

func TestGroupID(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		assert.Equal(t, GroupID([]string{"1", "2", "3"}), GroupID([]string{"3", "1", "2"}))
	})

	t.Run("membership change changes id", func(t *testing.T) {
		assert.NotEqual(t, GroupID([]string{"1", "2"}), GroupID([]string{"1", "2", "3"}))
	})

	t.Run("does not reorder input", func(t *testing.T) {
		ids := []string{"b", "a"}
		GroupID(ids)
		assert.Equal(t, []string{"b", "a"}, ids)
	})

	t.Run("shape", func(t *testing.T) {
		id := GroupID([]string{"1", "2"})
		assert.True(t, IsGroupID(id))
		assert.Len(t, id, len(GroupIDPrefix)+16)
	})
}

func TestIsGroupID(t *testing.T) {
	assert.False(t, IsGroupID(""))
	assert.False(t, IsGroupID("dup_123"))
	assert.False(t, IsGroupID("dup_zzzzzzzzzzzzzzzz"))
	assert.False(t, IsGroupID("grp_0123456789abcdef"))
	assert.True(t, IsGroupID("dup_0123456789abcdef"))
}
