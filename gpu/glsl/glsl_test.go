package glsl

import (
	"testing"

	"github.com/pthm-cable/fishflock/gpu"
)

func TestLocalSize(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		x, y, z uint32
		wantErr bool
	}{
		{
			name:   "all dimensions",
			source: "layout(local_size_x = 64, local_size_y = 2, local_size_z = 1) in;",
			x:      64, y: 2, z: 1,
		},
		{
			name:   "x only",
			source: "#version 430\nlayout (local_size_x=128) in;\nvoid main() {}",
			x:      128, y: 1, z: 1,
		},
		{
			name:    "buffer layout is not a local size",
			source:  "layout(std430, binding = 0) buffer B { float b[]; };",
			wantErr: true,
		},
		{
			name:    "zero size",
			source:  "layout(local_size_x = 0) in;",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z, err := LocalSize(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %d,%d,%d", x, y, z)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("expected %d,%d,%d, got %d,%d,%d", tt.x, tt.y, tt.z, x, y, z)
			}
		})
	}
}

func TestFlockingSourceDeclaresContract(t *testing.T) {
	src, ok := Sources[gpu.FlockingKernel]
	if !ok {
		t.Fatal("expected embedded Flocking kernel")
	}

	x, _, _, err := LocalSize(src)
	if err != nil {
		t.Fatalf("LocalSize: %v", err)
	}
	if x != 256 {
		t.Errorf("expected local_size_x 256, got %d", x)
	}

	for _, name := range append(Bindings, Uniforms...) {
		if !declares(src, name) {
			t.Errorf("expected kernel to declare %s", name)
		}
	}
}
