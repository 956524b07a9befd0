package lowering

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nplift-ml/nplift/internal/array"
)

func TestScopeReleasesLIFO(t *testing.T) {
	sc := NewScope()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		sc.Defer(func() error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, sc.Close())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestScopeCloseIdempotent(t *testing.T) {
	sc := NewScope()

	calls := 0
	sc.Defer(func() error {
		calls++
		return nil
	})

	require.NoError(t, sc.Close())
	require.NoError(t, sc.Close())
	assert.Equal(t, 1, calls)
}

func TestScopeJoinsReleaseErrors(t *testing.T) {
	sc := NewScope()

	errA := errors.New("release a")
	errB := errors.New("release b")
	sc.Defer(func() error { return errA })
	sc.Defer(func() error { return nil })
	sc.Defer(func() error { return errB })

	err := sc.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestScopeRunsAllReleasesDespiteErrors(t *testing.T) {
	sc := NewScope()

	ran := 0
	sc.Defer(func() error { ran++; return nil })
	sc.Defer(func() error { ran++; return errors.New("boom") })
	sc.Defer(func() error { ran++; return nil })

	_ = sc.Close()
	assert.Equal(t, 3, ran, "an erroring release must not skip the rest")
}

func TestNormalizePassThroughContiguous(t *testing.T) {
	sc := NewScope()
	defer func() { require.NoError(t, sc.Close()) }()

	a, err := array.FromSlice([]float64{1, 2, 3}, array.Shape{3})
	require.NoError(t, err)
	defer a.Release()

	out, err := Normalize(sc, []*array.Array{a})
	require.NoError(t, err)
	assert.Same(t, a, out[0], "contiguous operands pass through unchanged")
}

func TestNormalizeCopiesStrided(t *testing.T) {
	sc := NewScope()

	mat, err := array.FromSlice([]float64{1, 2, 3, 4, 5, 6}, array.Shape{2, 3})
	require.NoError(t, err)
	defer mat.Release()

	// Middle column: 2, 5.
	col := mat.View(array.Shape{2}, []int{3}, 1)
	defer col.Release()

	out, err := Normalize(sc, []*array.Array{col})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.NotSame(t, col, out[0])
	assert.True(t, out[0].Layout().Contiguous())
	got := out[0].AsFloat64()
	assert.Equal(t, 2.0, got[0])
	assert.Equal(t, 5.0, got[1])

	require.NoError(t, sc.Close())
}
