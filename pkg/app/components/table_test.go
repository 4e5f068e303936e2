package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	out := Table(
		[]string{"ID", "Title"},
		[][]string{
			{"a77742b1", "Berserk"},
			{"32d76d19", "One Punch-Man"},
		},
		40,
	)

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Berserk")
	assert.Contains(t, out, "One Punch-Man")
	assert.Less(t, strings.Index(out, "Berserk"), strings.Index(out, "One Punch-Man"))
}

func TestTableTruncatesWideCells(t *testing.T) {
	long := strings.Repeat("x", 100)
	out := Table([]string{"Title"}, [][]string{{long}}, 20)

	assert.NotContains(t, out, long)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 40)
	}
}

func TestTableEmpty(t *testing.T) {
	out := Table([]string{"ID", "Title"}, nil, 0)
	assert.Contains(t, out, "ID")
}
