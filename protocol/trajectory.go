package protocol

import "fmt"

// Shape describes a trajectory as dimension count x timestep count.
//
// Shape equality is the only alignment the protocol validates: two
// trajectories with equal shape but different sampling epochs will be
// compared positionally. Aligning sampling rates is the caller's
// responsibility, since validating it would require exchanging plaintext
// timestamps.
type Shape struct {
	Dimensions int
	Timesteps  int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Dimensions, s.Timesteps)
}

// Trajectory is an ordered sequence of timestep samples, each a fixed
// tuple of scalar dimensions. Immutable once constructed.
type Trajectory struct {
	// dims[d][t] is the scalar for dimension d at timestep t, the
	// canonical order in which samples are encrypted and evaluated.
	dims [][]uint64
}

// NewTrajectory builds a trajectory from per-dimension sample sequences,
// e.g. NewTrajectory(x, y, z) for three spatial axes. All dimensions must
// be non-empty and of equal length; anything else is ErrShape.
func NewTrajectory(dimensions ...[]uint64) (Trajectory, error) {
	if len(dimensions) == 0 {
		return Trajectory{}, fmt.Errorf("%w: no dimensions", ErrShape)
	}
	steps := len(dimensions[0])
	if steps == 0 {
		return Trajectory{}, fmt.Errorf("%w: no timesteps", ErrShape)
	}
	dims := make([][]uint64, len(dimensions))
	for d, samples := range dimensions {
		if len(samples) != steps {
			return Trajectory{}, fmt.Errorf("%w: dimension %d has %d timesteps, dimension 0 has %d",
				ErrShape, d, len(samples), steps)
		}
		dims[d] = append([]uint64(nil), samples...)
	}
	return Trajectory{dims: dims}, nil
}

// Shape returns the trajectory's shape descriptor.
func (tr Trajectory) Shape() Shape {
	if len(tr.dims) == 0 {
		return Shape{}
	}
	return Shape{Dimensions: len(tr.dims), Timesteps: len(tr.dims[0])}
}

// Sample returns the scalar for dimension d at timestep t.
func (tr Trajectory) Sample(d, t int) uint64 {
	return tr.dims[d][t]
}
