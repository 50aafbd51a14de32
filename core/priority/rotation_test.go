package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/oncall/core/model"
)

func TestRotateOneStep(t *testing.T) {
	base := model.Groups{{"a", "b", "c"}, {"d", "e"}, {"f"}}
	got := Rotate(base)
	assert.Equal(t, model.Groups{{"e", "d"}, {"f"}, {"b", "c", "a"}}, got)
	assert.Equal(t, model.Groups{{"a", "b", "c"}, {"d", "e"}, {"f"}}, base, "input untouched")
}

func TestRotateEdgeCases(t *testing.T) {
	assert.Equal(t, model.Groups{}, Rotate(nil))
	assert.Equal(t, model.Groups{{}, {"b", "a"}}, Rotate(model.Groups{{"a", "b"}, {}}))
}

func TestRotateCyclicInvariant(t *testing.T) {
	base := model.Groups{{"a", "b", "c"}, {"d", "e"}, {"f", "g", "h", "i"}}
	cur := base
	for k := 1; k <= 24; k++ {
		cur = Rotate(cur)
		for i := range cur {
			src := base[(i+k)%len(base)]
			want := make([]string, len(src))
			for j := range src {
				want[j] = src[(j+k)%len(src)]
			}
			assert.Equalf(t, want, cur[i], "k=%d group=%d", k, i)
		}
	}
	assert.Equal(t, base, cur, "lcm of group count and sizes brings the rotation home")
}

func TestReconcile(t *testing.T) {
	base := model.Groups{{"a", "gone"}, {"c"}}
	got := Reconcile(base, []string{"a", "c", "new"})
	assert.Equal(t, model.Groups{{"a"}, {"c", "new"}}, got)

	assert.Equal(t, model.Groups{{"x", "y"}}, Reconcile(nil, []string{"x", "y"}))
}

func TestRanking(t *testing.T) {
	g := model.Groups{{"b", "gone"}, {"a"}}
	assert.Equal(t, []string{"b", "a"}, Ranking(g, []string{"a", "b"}))
}
