package config

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/fsutil"
)

// Parameters are the caller-tunable reconstruction settings. A nil field
// means "use the engine default". The JSON schema is shared by parameter
// files and the gRPC request.
type Parameters struct {
	// Scale overrides the engine scale only when strictly positive.
	Scale *float64 `json:"scale,omitempty"`
	// Smoothness overrides the engine smoothness only when in [0,1).
	Smoothness *float64 `json:"smoothness,omitempty"`

	OrientationOrder *int    `json:"orientation_order,omitempty"`
	PositionOrder    *int    `json:"position_order,omitempty"`
	Label            *string `json:"label,omitempty"`
}

// Helper functions to create pointers
func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }
func String(v string) *string    { return &v }

// EmptyParameters returns Parameters with every field unset.
func EmptyParameters() *Parameters {
	return &Parameters{}
}

// FromSentinels translates the C ABI convention, where a negative value
// (normally -1) means "use the default", into optional fields.
func FromSentinels(scale, smoothness float32) *Parameters {
	p := EmptyParameters()
	if scale >= 0 {
		p.Scale = Float64(float64(scale))
	}
	if smoothness >= 0 {
		p.Smoothness = Float64(float64(smoothness))
	}
	return p
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// LoadParameters loads Parameters from a JSON file on disk.
func LoadParameters(path string) (*Parameters, error) {
	return LoadParametersFS(fsutil.OSFileSystem{}, path)
}

// LoadParametersFS loads Parameters from a JSON file in fsys.
// The file must have a .json extension and be under 1MB. Omitted fields stay
// unset, so partial files are safe.
func LoadParametersFS(fsys fsutil.FileSystem, path string) (*Parameters, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	p := EmptyParameters()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return p, nil
}

// SaveParameters writes p to path in fsys as indented JSON, creating the
// parent directory when needed.
func SaveParameters(fsys fsutil.FileSystem, path string, p *Parameters) error {
	if p == nil {
		p = EmptyParameters()
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config JSON: %w", err)
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	w, err := fsys.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		w.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return w.Close()
}

// Validate rejects values that can never be meaningful. Scale and
// smoothness outside their override ranges are not errors: they leave the
// engine defaults in place.
func (p *Parameters) Validate() error {
	if p == nil {
		return nil
	}
	if p.Scale != nil && (math.IsNaN(*p.Scale) || math.IsInf(*p.Scale, 0)) {
		return fmt.Errorf("scale must be finite, got %v", *p.Scale)
	}
	if p.Smoothness != nil && (math.IsNaN(*p.Smoothness) || math.IsInf(*p.Smoothness, 0)) {
		return fmt.Errorf("smoothness must be finite, got %v", *p.Smoothness)
	}
	if p.OrientationOrder != nil {
		if _, err := engine.OrientationTraits(*p.OrientationOrder); err != nil {
			return err
		}
	}
	if p.PositionOrder != nil {
		if _, err := engine.PositionTraits(*p.PositionOrder); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns a copy of p with every field set in over taking precedence.
func (p *Parameters) Merge(over *Parameters) *Parameters {
	out := EmptyParameters()
	if p != nil {
		*out = *p
	}
	if over == nil {
		return out
	}
	if over.Scale != nil {
		out.Scale = over.Scale
	}
	if over.Smoothness != nil {
		out.Smoothness = over.Smoothness
	}
	if over.OrientationOrder != nil {
		out.OrientationOrder = over.OrientationOrder
	}
	if over.PositionOrder != nil {
		out.PositionOrder = over.PositionOrder
	}
	if over.Label != nil {
		out.Label = over.Label
	}
	return out
}

// GetOrientationOrder returns the orientation_order value or the default.
func (p *Parameters) GetOrientationOrder() int {
	if p == nil || p.OrientationOrder == nil {
		return engine.DefaultOrientationOrder
	}
	return *p.OrientationOrder
}

// GetPositionOrder returns the position_order value or the default.
func (p *Parameters) GetPositionOrder() int {
	if p == nil || p.PositionOrder == nil {
		return engine.DefaultPositionOrder
	}
	return *p.PositionOrder
}

// GetLabel returns the scan label or "".
func (p *Parameters) GetLabel() string {
	if p == nil || p.Label == nil {
		return ""
	}
	return *p.Label
}
