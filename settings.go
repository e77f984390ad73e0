// settings.go - compile settings, with defaults taken from the environment
package tapec

import (
	"runtime"
	"strconv"

	"github.com/xyproto/env/v2"
)

// Verbose enables instruction tracing to stderr.
var Verbose = env.Bool("TAPEC_VERBOSE")

// Settings configures a compile request. The base address only affects the
// raw-bytecode output path; object artifacts are always assembled at 0 so
// label addresses are section offsets.
type Settings struct {
	Bitness     uint32
	BaseAddress uint64
	Convention  CallingConvention
}

// DefaultSettings builds settings from the environment: TAPEC_BASE for the
// raw-output base address (any strconv base prefix works) and
// TAPEC_CONVENTION ("sysv" or "ms64") for the external calling convention,
// defaulting from the host OS.
func DefaultSettings() Settings {
	s := Settings{Bitness: 64, Convention: SystemVAMD64}
	if runtime.GOOS == "windows" {
		s.Convention = MicrosoftX64
	}

	if v := env.Str("TAPEC_BASE"); v != "" {
		if base, err := strconv.ParseUint(v, 0, 64); err == nil {
			s.BaseAddress = base
		}
	}

	switch env.Str("TAPEC_CONVENTION") {
	case "sysv":
		s.Convention = SystemVAMD64
	case "ms64":
		s.Convention = MicrosoftX64
	}

	return s
}
