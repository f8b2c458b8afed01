package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/internal/sim"
	"github.com/Alia5/splitkb/matrix"
)

func TestPin(t *testing.T) {
	p := sim.NewPin(true)
	assert.True(t, p.IsLow())
	p.SetHigh()
	assert.True(t, p.IsHigh())
	assert.False(t, p.IsLow())
}

func TestMatrixScan(t *testing.T) {
	sw := sim.NewMatrix(5, 6)
	m, err := matrix.New(sw.ColPins(), sw.RowPins())
	require.NoError(t, err)

	require.NoError(t, sw.Press(2, 3))
	require.NoError(t, sw.Press(4, 0))

	s := m.Get()
	assert.True(t, s.Pressed(2, 3))
	assert.True(t, s.Pressed(4, 0))
	assert.False(t, s.Pressed(2, 0))
	assert.False(t, s.Pressed(4, 3))
	assert.True(t, s.Equal(sw.Snapshot()))

	require.NoError(t, sw.Release(2, 3))
	assert.False(t, m.Get().Pressed(2, 3))
}

func TestMatrixLatch(t *testing.T) {
	sw := sim.NewMatrix(2, 2)

	on, err := sw.Latch(1, 1)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, sw.Release(1, 1))
	assert.True(t, sw.Closed(1, 1), "latched switch ignores release")

	on, err = sw.Latch(1, 1)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, sw.Closed(1, 1))
}

func TestMatrixBounds(t *testing.T) {
	sw := sim.NewMatrix(5, 6)
	tests := []struct{ row, col int }{
		{-1, 0}, {5, 0}, {0, 6}, {0, -1},
	}
	for _, tt := range tests {
		assert.Error(t, sw.Press(tt.row, tt.col))
		assert.False(t, sw.Closed(tt.row, tt.col))
	}
}
