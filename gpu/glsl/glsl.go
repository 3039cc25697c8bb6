// Package glsl holds the embedded GLSL compute kernels and helpers for
// inspecting their source.
package glsl

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pthm-cable/fishflock/gpu"
)

//go:embed shaders/flocking.comp
var flockingSource string

// Sources maps kernel entry point names to GLSL compute shader source.
var Sources = map[string]string{
	gpu.FlockingKernel: flockingSource,
}

// Bindings lists the flocking kernel's storage buffers in binding index order.
var Bindings = []string{
	gpu.BindPosition,
	gpu.BindVelocity,
	gpu.BindSmoothedPosition,
	gpu.BindSmoothedVelocity,
}

// Uniforms lists the flocking kernel's uniforms.
var Uniforms = []string{
	"_Nums",
	"_SpeedRange",
	"_ForceWeight",
	"_PerceptionRadius",
	"_MaxForce",
	"_TargetPosition",
	"_TargetForce",
	"_DeltaTime",
}

var localSizeRe = regexp.MustCompile(`layout\s*\(([^)]*)\)\s*in\s*;`)

var localSizeArgRe = regexp.MustCompile(`local_size_([xyz])\s*=\s*(\d+)`)

// LocalSize returns the work group size declared by a compute shader.
// Dimensions that are not declared default to 1.
func LocalSize(source string) (x, y, z uint32, err error) {
	m := localSizeRe.FindStringSubmatch(source)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("no local_size layout declaration")
	}

	size := map[string]uint32{"x": 1, "y": 1, "z": 1}
	found := false
	for _, arg := range localSizeArgRe.FindAllStringSubmatch(m[1], -1) {
		v, err := strconv.ParseUint(arg[2], 10, 32)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("parsing local_size_%s: %w", arg[1], err)
		}
		if v == 0 {
			return 0, 0, 0, fmt.Errorf("local_size_%s must be positive", arg[1])
		}
		size[arg[1]] = uint32(v)
		found = true
	}
	if !found {
		return 0, 0, 0, fmt.Errorf("layout declaration has no local_size qualifiers")
	}
	return size["x"], size["y"], size["z"], nil
}

// Missing returns the names from want that source never mentions.
func Missing(source string, want []string) []string {
	var missing []string
	for _, name := range want {
		if !declares(source, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func declares(source, name string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(source)
}
