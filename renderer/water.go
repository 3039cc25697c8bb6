package renderer

import (
	_ "embed"

	rl "github.com/gen2brain/raylib-go/raylib"
)

//go:embed shaders/water.fs
var waterFS string

// WaterBackground renders an animated underwater gradient with caustics.
type WaterBackground struct {
	shader        rl.Shader
	timeLoc       int32
	resolutionLoc int32
	yawLoc        int32
	width         float32
	height        float32
	initialized   bool
}

// NewWaterBackground creates a new water background renderer.
func NewWaterBackground(width, height int32) *WaterBackground {
	return &WaterBackground{
		width:  float32(width),
		height: float32(height),
	}
}

// Init initializes the renderer (must be called after raylib window is created).
func (w *WaterBackground) Init() {
	if w.initialized {
		return
	}

	w.shader = rl.LoadShaderFromMemory("", waterFS)
	w.timeLoc = rl.GetShaderLocation(w.shader, "time")
	w.resolutionLoc = rl.GetShaderLocation(w.shader, "resolution")
	w.yawLoc = rl.GetShaderLocation(w.shader, "yaw")

	rl.SetShaderValue(w.shader, w.resolutionLoc, []float32{w.width, w.height}, rl.ShaderUniformVec2)

	w.initialized = true
}

// Resize updates the resolution uniform.
func (w *WaterBackground) Resize(width, height int32) {
	w.width, w.height = float32(width), float32(height)
	if w.initialized {
		rl.SetShaderValue(w.shader, w.resolutionLoc, []float32{w.width, w.height}, rl.ShaderUniformVec2)
	}
}

// Draw renders the background. yaw is the camera angle so the caustics
// drift as the view turns.
func (w *WaterBackground) Draw(time, yaw float32) {
	if !w.initialized {
		w.Init()
	}

	rl.SetShaderValue(w.shader, w.timeLoc, []float32{time}, rl.ShaderUniformFloat)
	rl.SetShaderValue(w.shader, w.yawLoc, []float32{yaw}, rl.ShaderUniformFloat)

	rl.BeginShaderMode(w.shader)
	rl.DrawRectangle(0, 0, int32(w.width), int32(w.height), rl.White)
	rl.EndShaderMode()
}

// Unload frees resources.
func (w *WaterBackground) Unload() {
	if w.initialized {
		rl.UnloadShader(w.shader)
		w.initialized = false
	}
}
