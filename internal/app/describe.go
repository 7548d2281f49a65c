package app

import (
	"github.com/MrWong99/aiagentdata/internal/function"
	"github.com/MrWong99/aiagentdata/internal/trigger"
)

// Manifest is the machine-readable description printed by -describe.
type Manifest struct {
	Functions []trigger.Metadata `json:"functions"`
	Reserved  function.Reserved  `json:"reserved"`
}

// Describe returns the manifest of the functions registered in reg.
func Describe(reg *trigger.Registry) Manifest {
	bindings := reg.Bindings()
	m := Manifest{
		Functions: make([]trigger.Metadata, 0, len(bindings)),
		Reserved:  function.ReservedConfig(),
	}
	for _, b := range bindings {
		m.Functions = append(m.Functions, b.Metadata())
	}
	return m
}
