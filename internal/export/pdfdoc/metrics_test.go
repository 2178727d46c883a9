package pdfdoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringWidth(t *testing.T) {
	// "Hi" = 722 + 222 in Helvetica.
	assert.InDelta(t, 9.44, StringWidth(Regular, 10, "Hi"), 1e-9)
	assert.Greater(t, StringWidth(Bold, 10, "Hi"), StringWidth(Regular, 10, "Hi"))
	assert.Zero(t, StringWidth(Regular, 10, ""))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{""}, Wrap(Regular, 10, "", 100))
	assert.Equal(t, []string{"short"}, Wrap(Regular, 10, "short", 100))

	lines := Wrap(Regular, 10, "lunch with friends at the new place downtown", 80)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, StringWidth(Regular, 10, l), 80.0, l)
	}
	assert.Equal(t, "lunch with friends at the new place downtown", strings.Join(lines, " "))

	assert.Equal(t, []string{"a", "b"}, Wrap(Regular, 10, "a\nb", 100))

	long := strings.Repeat("x", 60)
	pieces := Wrap(Regular, 10, long, 50)
	assert.Greater(t, len(pieces), 1)
	assert.Equal(t, long, strings.Join(pieces, ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Food", Truncate(Regular, 10, "Food", 100))
	got := Truncate(Regular, 10, strings.Repeat("Groceries ", 10), 60)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, StringWidth(Regular, 10, got), 60.0)
}
