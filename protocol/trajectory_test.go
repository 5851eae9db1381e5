package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTrajectory(t *testing.T) {
	tr, err := NewTrajectory(
		[]uint64{100, 101, 102},
		[]uint64{200, 201, 202},
		[]uint64{300, 301, 302},
	)
	require.NoError(t, err)
	require.Equal(t, Shape{Dimensions: 3, Timesteps: 3}, tr.Shape())
	require.Equal(t, uint64(100), tr.Sample(0, 0))
	require.Equal(t, uint64(202), tr.Sample(1, 2))
	require.Equal(t, uint64(301), tr.Sample(2, 1))
}

func TestNewTrajectoryRaggedDimensions(t *testing.T) {
	_, err := NewTrajectory(
		[]uint64{1, 2, 3},
		[]uint64{4, 5},
	)
	require.ErrorIs(t, err, ErrShape)
}

func TestNewTrajectoryEmpty(t *testing.T) {
	_, err := NewTrajectory()
	require.ErrorIs(t, err, ErrShape)

	_, err = NewTrajectory([]uint64{})
	require.ErrorIs(t, err, ErrShape)
}

func TestTrajectoryCopiesInput(t *testing.T) {
	x := []uint64{1, 2, 3}
	tr, err := NewTrajectory(x)
	require.NoError(t, err)

	x[0] = 99
	require.Equal(t, uint64(1), tr.Sample(0, 0))
}
