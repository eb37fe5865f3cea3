package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b RelPath
		want int
	}{
		{name: "equal", a: "a/b", b: "a/b", want: 0},
		{name: "parent before child", a: "a", b: "a/x", want: -1},
		{name: "root before everything", a: "", b: "a", want: -1},
		{name: "siblings by name", a: "a/b", b: "a/c", want: -1},
		{name: "shorter sibling first", a: "ab", b: "abc", want: -1},
		{name: "separator beats dot", a: "a/x", b: "a.", want: -1},
		{name: "separator beats longer name", a: "a/b", b: "ab", want: -1},
		{name: "deep before shallow cousin", a: "a/b/c", b: "a/bc", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sign(Compare(tt.a, tt.b)))
			assert.Equal(t, -tt.want, sign(Compare(tt.b, tt.a)))
		})
	}
}

func TestListingSort(t *testing.T) {
	l := Listing{
		{Path: "b.txt"},
		{Path: "a."},
		{Path: "a/x"},
		{Path: "a"},
		{Path: "a/x/y"},
	}
	l.Sort()
	assert.Equal(t, []RelPath{"a", "a/x", "a/x/y", "a.", "b.txt"}, l.Paths())
}

func TestRelPathParts(t *testing.T) {
	p := RelPath("a/b/c.txt")
	assert.Equal(t, "c.txt", p.Base())
	assert.Equal(t, RelPath("a/b"), p.Parent())
	assert.Equal(t, RelPath(""), RelPath("top").Parent())
	assert.Equal(t, "top", RelPath("top").Base())

	assert.Equal(t, RelPath("a/b"), RelPath("a").Join("b"))
	assert.Equal(t, RelPath("b"), RelPath("").Join("b"))
}

func TestIsDescendantOf(t *testing.T) {
	assert.True(t, RelPath("a/b").IsDescendantOf("a"))
	assert.True(t, RelPath("a/b/c").IsDescendantOf("a"))
	assert.True(t, RelPath("a").IsDescendantOf(""))
	assert.False(t, RelPath("a").IsDescendantOf("a"))
	assert.False(t, RelPath("ab").IsDescendantOf("a"))
	assert.False(t, RelPath("").IsDescendantOf(""))
}

func TestNormPath(t *testing.T) {
	tests := []struct {
		give string
		want RelPath
	}{
		{give: "a/b", want: "a/b"},
		{give: "/a/b/", want: "a/b"},
		{give: "./a/./b", want: "a/b"},
		{give: "a/../b", want: "b"},
		{give: "", want: ""},
		{give: "/", want: ""},
		{give: ".", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormPath(tt.give), "NormPath(%q)", tt.give)
	}
}
