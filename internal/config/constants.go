// Package config holds the compile-time tunables of the interpreter and
// the optional host configuration file.
package config

// Interpreter limits. Exceeding any of these is a resource error.
const (
	// DefaultStackSize is the value-stack capacity of a thread.
	DefaultStackSize = 128

	// DefaultIndirSize is the indirection-stack capacity of a thread.
	// Each call frame occupies three slots.
	DefaultIndirSize = 256

	// MaxProgramLen bounds the bytecode image of a single state.
	MaxProgramLen = 1 << 16

	// MaxNumbers and MaxStrings bound the per-state literal pools.
	MaxNumbers = 512
	MaxStrings = 1024

	// MaxTokenLen bounds identifiers and literals in the lexer.
	MaxTokenLen = 256

	// MaxArgs bounds the parameter list of a function.
	MaxArgs = 32

	// InitialGCThreshold is the heap object count that triggers the
	// first collection of a thread.
	InitialGCThreshold = 8
)

// SourceFileExt is the canonical script extension.
const SourceFileExt = ".tiny"

// HostConfigFile is the well-known host configuration filename looked
// up next to the script being run.
const HostConfigFile = "tiny.yaml"
