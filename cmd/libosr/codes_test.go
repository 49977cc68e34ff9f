package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, codeOK},
		{errors.New("plain"), codeUnknown},
		{mesh.Errorf(mesh.PhaseValidate, mesh.KindInvalidBufferLayout, "x"), codeInvalidBufferLayout},
		{fmt.Errorf("wrapped: %w", mesh.Errorf(mesh.PhaseBuild, mesh.KindFaceOverflow, "x")), codeFaceOverflow},
		{mesh.Errorf(mesh.PhaseRelease, mesh.KindDoubleRelease, "x"), codeDoubleRelease},
		{mesh.Errorf(mesh.PhaseRelease, mesh.KindNotOwned, "x"), codeNotOwned},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), "%v", tt.err)
	}
}

func TestErrorCodesAreDistinct(t *testing.T) {
	seen := map[int]mesh.Kind{}
	for kind, code := range kindCodes {
		assert.Negative(t, code, kind)
		if other, dup := seen[code]; dup {
			t.Errorf("kinds %s and %s share code %d", kind, other, code)
		}
		seen[code] = kind
	}
}

func TestLastError(t *testing.T) {
	var l lastError
	assert.Empty(t, l.get())
	l.set(errors.New("boom"))
	assert.Equal(t, "boom", l.get())
}
