// splatview - Terminal triangle-splat viewer
// View a GLTF/GLB mesh as a radiance-field splat scene in your terminal, or
// fly around a procedurally generated test scene with no file at all.
//
// Controls:
//
//	Mouse drag  - Orbit the camera
//	Scroll      - Zoom in/out
//	W/S/A/D     - Orbit pitch/yaw
//	R           - Reset view
//	+/-         - Adjust sigma (edge-shrink exponent)
//	?           - Toggle HUD overlay (FPS, triangle count)
//	G           - Toggle cull stats on the HUD's bottom line
//	P           - Save a screenshot PNG
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/splatview/pkg/diag"
	"github.com/taigrr/splatview/pkg/math3d"
	"github.com/taigrr/splatview/pkg/models"
	"github.com/taigrr/splatview/pkg/raster"
	"github.com/taigrr/splatview/pkg/render"
	"github.com/taigrr/splatview/pkg/scene"
	"github.com/taigrr/splatview/pkg/splat"
)

var (
	targetFPS  = flag.Int("fps", 60, "Target FPS")
	bgColor    = flag.String("bg", "12,12,18", "Background color (R,G,B)")
	sigmaFlag  = flag.Float64("sigma", 1.0, "Edge-shrink exponent")
	opacity    = flag.Float64("opacity", 0.9, "Uniform opacity synthesized for mesh vertices (GLTF/GLB has none natively)")
	splatCount = flag.Int("splats", 600, "Triangle count for the procedural test scene (used when no model is given)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "splatview - Terminal triangle-splat viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: splatview [options] [model.glb|model.gltf]\n\n")
		fmt.Fprintf(os.Stderr, "With no model argument, a procedural test scene is generated.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit camera\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Orbit pitch/yaw\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  +/-         - Adjust sigma\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  P           - Save a screenshot PNG\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	var modelPath string
	if flag.NArg() >= 1 {
		modelPath = flag.Arg(0)
	}

	if err := run(modelPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// OrbitAxis tracks an orbit angle and its velocity with spring-damped decay,
// so input impulses feel the same whether they come from a key tap or a
// mouse drag.
type OrbitAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

func NewOrbitAxis(fps int) OrbitAxis {
	return OrbitAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

func (a *OrbitAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// OrbitState holds the camera's orbit angles around the scene origin.
type OrbitState struct {
	Yaw, Pitch OrbitAxis
	Distance   float64
	fps        int
}

func NewOrbitState(fps int, distance float64) *OrbitState {
	return &OrbitState{
		Yaw:      NewOrbitAxis(fps),
		Pitch:    NewOrbitAxis(fps),
		Distance: distance,
		fps:      fps,
	}
}

func (o *OrbitState) Update() {
	o.Yaw.Update()
	o.Pitch.Update()

	const maxPitch = math.Pi/2 - 0.05
	if o.Pitch.Position > maxPitch {
		o.Pitch.Position = maxPitch
	}
	if o.Pitch.Position < -maxPitch {
		o.Pitch.Position = -maxPitch
	}
}

func (o *OrbitState) ApplyImpulse(dYaw, dPitch float64) {
	o.Yaw.Velocity += dYaw
	o.Pitch.Velocity += dPitch
}

func (o *OrbitState) Reset(distance float64) {
	o.Yaw = NewOrbitAxis(o.fps)
	o.Pitch = NewOrbitAxis(o.fps)
	o.Distance = distance
}

// CameraPosition returns the world-space camera position for the current
// orbit angles, at Distance from the origin.
func (o *OrbitState) CameraPosition() math3d.Vec3 {
	cosPitch := math.Cos(o.Pitch.Position)
	return math3d.V3(
		o.Distance*cosPitch*math.Sin(o.Yaw.Position),
		o.Distance*math.Sin(o.Pitch.Position),
		o.Distance*cosPitch*math.Cos(o.Yaw.Position),
	)
}

// HUD renders an FPS/info overlay directly to the terminal via ANSI escapes.
type HUD struct {
	label     string
	triCount  int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

func NewHUD(label string, triCount int) *HUD {
	return &HUD{label: label, triCount: triCount, fpsTime: time.Now()}
}

func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

func (h *HUD) Render(width, height int, show bool, sigma float64, report *diag.Report) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)
	if !show {
		return
	}

	fmt.Print(fmt.Sprintf("%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset))

	title := fmt.Sprintf("%s%s%s %s σ=%.2f %s", bold, bgBlack, fgWhite, h.label, sigma, reset)
	titleCol := max((width-len(h.label)-10)/2, 1)
	fmt.Print(moveTo(1, titleCol) + title)

	polyStr := fmt.Sprintf("%s%s%s %d tris %s", bgBlack, fgCyan, bold, h.triCount, reset)
	fmt.Print(moveTo(1, max(width-14, 1)) + polyStr)

	if report != nil {
		statLine := fmt.Sprintf("%s%s%s passed=%d minOp=%d backface=%d clip=%d perim=%d size=%d (%.0f%% filtered) %s",
			bgBlack, fgWhite, bold,
			report.Gates.Passed, report.Gates.MinOpacityFiltered, report.Gates.BackfaceFiltered,
			report.Gates.ClipRejected, report.Gates.PerimeterFiltered, report.Gates.SizeFiltered,
			report.Gates.FilterPercentage(), reset)
		fmt.Print(moveTo(height, 1) + statLine)
	}
}

func run(modelPath string) error {
	var bgR, bgG, bgB uint8 = 12, 12, 18
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	fb := render.NewFramebuffer(fbWidth, fbHeight)

	camera := render.NewCamera()
	camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
	camera.SetFOV(math.Pi / 3)
	camera.SetClipPlanes(0.05, 100)

	label, in, err := loadScene(modelPath)
	if err != nil {
		return err
	}
	in.Sigma = *sigmaFlag
	normalizeScene(in)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver, err := scene.NewDriver(ctx, in)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	const defaultDistance = 3.0
	orbit := NewOrbitState(*targetFPS, defaultDistance)
	sigma := in.EffectiveSigma()
	showHUD := true
	debugStats := false
	screenshotRequested := false
	hud := NewHUD(label, len(in.Triangles))

	const torqueStrength = 1.5
	inputTorque := struct{ yaw, pitch float64 }{}

	var mouseDown bool
	var lastMouseX, lastMouseY int

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				termRenderer = render.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				fb = render.NewFramebuffer(fbWidth, fbHeight)
				camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("r"):
					orbit.Reset(defaultDistance)
				case ev.MatchString("w", "up"):
					inputTorque.pitch = torqueStrength
				case ev.MatchString("s", "down"):
					inputTorque.pitch = -torqueStrength
				case ev.MatchString("a", "left"):
					inputTorque.yaw = -torqueStrength
				case ev.MatchString("d", "right"):
					inputTorque.yaw = torqueStrength
				case ev.MatchString("+", "="):
					sigma = math.Min(8, sigma+0.1)
				case ev.MatchString("-", "_"):
					sigma = math.Max(0.1, sigma-0.1)
				case ev.MatchString("?"), ev.MatchString("shift+/"):
					showHUD = !showHUD
				case ev.MatchString("g"):
					debugStats = !debugStats
				case ev.MatchString("p"):
					screenshotRequested = true
				}

			case uv.KeyReleaseEvent:
				switch {
				case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
					inputTorque.pitch = 0
				case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
					inputTorque.yaw = 0
				}

			case uv.MouseClickEvent:
				mouseDown = true
				lastMouseX, lastMouseY = ev.X, ev.Y

			case uv.MouseReleaseEvent:
				mouseDown = false

			case uv.MouseMotionEvent:
				if mouseDown {
					dx := ev.X - lastMouseX
					dy := ev.Y - lastMouseY
					orbit.ApplyImpulse(float64(dx)*0.03, float64(-dy)*0.03)
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					orbit.Distance = math.Max(0.5, orbit.Distance-0.2)
				case uv.MouseWheelDown:
					orbit.Distance = math.Min(50, orbit.Distance+0.2)
				}
			}
		}
	}()

	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	var diagSamples []diag.Sample
	for i, tri := range in.Triangles {
		if i%4 != 0 { // sample a quarter of the scene for the HUD's debug overlay
			continue
		}
		diagSamples = append(diagSamples, diag.Sample{
			V0: in.Vertices[tri[0]],
			V1: in.Vertices[tri[1]],
			V2: in.Vertices[tri[2]],
			M:  minOpacity(in, tri),
		})
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now
		if dt > 0.1 {
			dt = 0.1
		}

		orbit.ApplyImpulse(inputTorque.yaw*dt, inputTorque.pitch*dt)
		orbit.Update()

		camera.Position = orbit.CameraPosition()
		camera.LookAt(math3d.V3(0, 0, 0))
		viewMatrix := camera.ViewMatrix()
		projMatrix := camera.ProjectionMatrix()

		driver.SetSigma(sigma)
		driver.Update(now, viewMatrix)

		fb.Clear(render.RGB(bgR, bgG, bgB))
		driver.Draw(fb, camera.Position, viewMatrix, projMatrix)

		if screenshotRequested {
			screenshotRequested = false
			if err := fb.SavePNG(fmt.Sprintf("splatview-%d.png", now.UnixNano())); err != nil {
				fmt.Fprintf(os.Stderr, "screenshot failed: %v\n", err)
			}
		}

		termRenderer.Render(fb)
		if err := termRenderer.Flush(); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		hud.UpdateFPS()
		var report *diag.Report
		if debugStats && len(diagSamples) > 0 {
			r := diag.Analyze(diagSamples, raster.Uniforms{
				CameraPos:  camera.Position,
				ModelView:  viewMatrix,
				Projection: projMatrix,
				Width:      fb.Width,
				Height:     fb.Height,
				Sigma:      sigma,
			})
			report = &r
		}
		hud.Render(width, height, showHUD, sigma, report)

		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

func minOpacity(in *splat.SceneInput, tri [3]uint32) float64 {
	w0, w1, w2 := in.Opacities[tri[0]], in.Opacities[tri[1]], in.Opacities[tri[2]]
	m := w0
	if w1 < m {
		m = w1
	}
	if w2 < m {
		m = w2
	}
	return m
}

func loadScene(modelPath string) (label string, in *splat.SceneInput, err error) {
	if modelPath == "" {
		in := generateProceduralScene(*splatCount)
		return fmt.Sprintf("procedural (%d splats)", *splatCount), in, nil
	}

	ext := strings.ToLower(filepath.Ext(modelPath))
	switch ext {
	case ".glb", ".gltf":
		in, err := models.LoadSplatScene(modelPath, models.SceneOptions{Opacity: *opacity, Sigma: *sigmaFlag})
		if err != nil {
			return "", nil, fmt.Errorf("load model: %w", err)
		}
		return filepath.Base(modelPath), in, nil
	default:
		return "", nil, fmt.Errorf("unsupported format: %s (use .glb or .gltf)", ext)
	}
}

// generateProceduralScene builds a UV-sphere of degree-1 SH splats so the
// viewer has something to show with no input file. Per-vertex SH encodes a
// simple view-dependent tint so sh.Eval is actually exercised.
func generateProceduralScene(triangleBudget int) *splat.SceneInput {
	rings := int(math.Max(4, math.Sqrt(float64(triangleBudget)/4)))
	segs := rings * 2

	var vertices []math3d.Vec3
	var opacities []float64
	var dc [][3]float64
	var rest [][]float64

	for ring := 0; ring <= rings; ring++ {
		theta := math.Pi * float64(ring) / float64(rings)
		for seg := 0; seg <= segs; seg++ {
			phi := 2 * math.Pi * float64(seg) / float64(segs)
			n := math3d.V3(
				math.Sin(theta)*math.Cos(phi),
				math.Cos(theta),
				math.Sin(theta)*math.Sin(phi),
			)
			vertices = append(vertices, n.Scale(1.0))
			opacities = append(opacities, 0.85+0.1*rand.Float64())
			dc = append(dc, [3]float64{n.X * 0.4, n.Y * 0.4, n.Z * 0.4})
			rest = append(rest, []float64{
				n.Y * 0.3, n.Z * 0.3, n.X * 0.3,
				0, 0, 0,
				0, 0, 0,
			})
		}
	}

	var triangles [][3]uint32
	stride := segs + 1
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segs; seg++ {
			a := uint32(ring*stride + seg)
			b := uint32(ring*stride + seg + 1)
			c := uint32((ring+1)*stride + seg)
			d := uint32((ring+1)*stride + seg + 1)
			triangles = append(triangles, [3]uint32{a, c, b}, [3]uint32{b, c, d})
		}
	}

	return &splat.SceneInput{
		Vertices:     vertices,
		Triangles:    triangles,
		Opacities:    opacities,
		Degree:       1,
		FeaturesDC:   dc,
		FeaturesRest: rest,
		Sigma:        1.0,
	}
}

// normalizeScene recenters and rescales a loaded scene in place so it fills
// a roughly unit-radius sphere at the origin, regardless of source units.
func normalizeScene(in *splat.SceneInput) {
	if len(in.Vertices) == 0 {
		return
	}
	min, max := in.Vertices[0], in.Vertices[0]
	for _, v := range in.Vertices[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	center := min.Add(max).Scale(0.5)
	size := max.Sub(min)
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim <= 0 {
		return
	}
	scale := 2.0 / maxDim
	for i, v := range in.Vertices {
		in.Vertices[i] = v.Sub(center).Scale(scale)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
