package engine

import "fmt"

// Engine defaults applied before caller parameters.
const (
	DefaultScale            = 0.25
	DefaultSmoothness       = 0.5
	DefaultOrientationOrder = 6
	DefaultPositionOrder    = 6
)

// OrientationFieldTraits selects the rotational symmetry (RoSy) of the
// orientation field.
type OrientationFieldTraits interface {
	Order() int
	Name() string
}

// PositionFieldTraits selects the positional symmetry (PoSy) of the
// position field. Order 6 extracts triangles, order 4 quads.
type PositionFieldTraits interface {
	Order() int
	Name() string
}

type rosyTraits int

func (r rosyTraits) Order() int   { return int(r) }
func (r rosyTraits) Name() string { return fmt.Sprintf("rosy%d", int(r)) }

type posyTraits int

func (p posyTraits) Order() int   { return int(p) }
func (p posyTraits) Name() string { return fmt.Sprintf("posy%d", int(p)) }

// OrientationTraits returns the orientation traits for order 2, 4 or 6.
func OrientationTraits(order int) (OrientationFieldTraits, error) {
	switch order {
	case 2, 4, 6:
		return rosyTraits(order), nil
	}
	return nil, fmt.Errorf("unsupported orientation field order %d (want 2, 4 or 6)", order)
}

// PositionTraits returns the position traits for order 4 or 6.
func PositionTraits(order int) (PositionFieldTraits, error) {
	switch order {
	case 4, 6:
		return posyTraits(order), nil
	}
	return nil, fmt.Errorf("unsupported position field order %d (want 4 or 6)", order)
}

// MeshSettings configures a Data container.
type MeshSettings struct {
	Rosy OrientationFieldTraits
	Posy PositionFieldTraits

	// Smoothness in [0,1) weights neighbour averaging during integration.
	Smoothness float64

	scale float64
}

// DefaultMeshSettings returns the engine defaults: order-6 fields, scale
// DefaultScale, smoothness DefaultSmoothness.
func DefaultMeshSettings() MeshSettings {
	return MeshSettings{
		Rosy:       rosyTraits(DefaultOrientationOrder),
		Posy:       posyTraits(DefaultPositionOrder),
		Smoothness: DefaultSmoothness,
		scale:      DefaultScale,
	}
}

// SetScale sets the target edge length of the extracted mesh.
func (s *MeshSettings) SetScale(scale float64) { s.scale = scale }

// Scale returns the target edge length.
func (s MeshSettings) Scale() float64 { return s.scale }

// String summarises the settings for logs.
func (s MeshSettings) String() string {
	rosy, posy := "none", "none"
	if s.Rosy != nil {
		rosy = s.Rosy.Name()
	}
	if s.Posy != nil {
		posy = s.Posy.Name()
	}
	return fmt.Sprintf("%s/%s scale=%g smoothness=%g", rosy, posy, s.scale, s.Smoothness)
}
