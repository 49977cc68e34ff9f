package main

import (
	"sync"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

// Return codes of the exported functions.
const (
	codeOK                  = 0
	codeUnknown             = -1
	codeInvalidBufferLayout = -2
	codeIndexOutOfRange     = -3
	codeInvalidParameters   = -4
	codeVertexOverflow      = -5
	codeFaceOverflow        = -6
	codeIncompleteMesh      = -7
	codeProtocol            = -8
	codeEngine              = -9
	codeDoubleRelease       = -10
	codeNotOwned            = -11
)

var kindCodes = map[mesh.Kind]int{
	mesh.KindInvalidBufferLayout: codeInvalidBufferLayout,
	mesh.KindIndexOutOfRange:     codeIndexOutOfRange,
	mesh.KindInvalidParameters:   codeInvalidParameters,
	mesh.KindVertexOverflow:      codeVertexOverflow,
	mesh.KindFaceOverflow:        codeFaceOverflow,
	mesh.KindIncompleteMesh:      codeIncompleteMesh,
	mesh.KindProtocol:            codeProtocol,
	mesh.KindEngine:              codeEngine,
	mesh.KindDoubleRelease:       codeDoubleRelease,
	mesh.KindNotOwned:            codeNotOwned,
}

func errorCode(err error) int {
	if err == nil {
		return codeOK
	}
	if code, ok := kindCodes[mesh.KindOf(err)]; ok {
		return code
	}
	return codeUnknown
}

// lastError keeps the message of the most recent failure for
// osr_last_error.
type lastError struct {
	mu  sync.Mutex
	msg string
}

func (l *lastError) set(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msg = err.Error()
}

func (l *lastError) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msg
}
