package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameID(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"alice", "ALICE", true},
		{"kate", "\u212Aate", true},
		{"sam", "\u017Fam", true},
		{"alice", "alicia", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SameID(c.a, c.b), "%q vs %q", c.a, c.b)
		assert.Equal(t, c.want, FoldID(c.a) == FoldID(c.b), "%q vs %q", c.a, c.b)
	}
}
