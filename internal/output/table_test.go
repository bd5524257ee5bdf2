package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_String(t *testing.T) {
	tbl := NewTable("EVENT", "VERSION").
		Row("build.completed", "1.2.0").
		Row("deploy.committed", "1.2.0")

	assert.Equal(t, 2, tbl.Len())

	out := tbl.String()
	for _, want := range []string{"EVENT", "VERSION", "build.completed", "deploy.committed", "1.2.0"} {
		assert.Contains(t, out, want)
	}

	lines := strings.Split(out, "\n")
	headerAt := -1
	for i, l := range lines {
		if strings.Contains(l, "EVENT") {
			headerAt = i
		}
		if strings.Contains(l, "build.completed") {
			assert.Greater(t, i, headerAt, "rows render below the header")
		}
	}
}

func TestTable_Empty(t *testing.T) {
	tbl := NewTable("A", "B")
	assert.Zero(t, tbl.Len())
	assert.Contains(t, tbl.String(), "A")
}
