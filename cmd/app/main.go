package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"drift-sim/internal/camera"
	"drift-sim/internal/chassis"
	"drift-sim/internal/config"
	"drift-sim/internal/driver"
	"drift-sim/internal/input"
	"drift-sim/internal/input/keyboard"
	"drift-sim/internal/logging"
	"drift-sim/internal/session"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/track"
	"drift-sim/internal/vehicle"
)

// Render window dimensions
const (
	WindowWidth  = 1200
	WindowHeight = 800
)

// View settings
const (
	ViewScaleMargin = 0.95 // Margin for fitting track in window (0.95 = 5% padding)
	ChaseZoom       = 12.0 // Screen pixels per metre in chase view
	MaxSkidMarks    = 6000
	CarLength       = 4.2
	CarWidth        = 1.8
	TyreLength      = 0.66
)

// Track surface colors
var (
	ColorTarmac = color.RGBA{80, 80, 80, 255}
	ColorGravel = color.RGBA{120, 100, 60, 255}
	ColorWall   = color.RGBA{10, 10, 10, 255}
	ColorStart  = color.RGBA{255, 0, 0, 255}
	ColorDir    = color.RGBA{255, 255, 0, 255}
)

// Visualization colors
var (
	ColorFrenetFrame = color.RGBA{50, 155, 50, 40}
	ColorGate        = color.RGBA{0, 160, 255, 120}
	ColorCar         = color.RGBA{255, 0, 0, 255}
	ColorCarHeading  = color.RGBA{255, 255, 0, 255}
	ColorTyre        = color.RGBA{20, 20, 20, 255}
	ColorSkid        = color.RGBA{15, 15, 15, 160}
	ColorTrace       = color.RGBA{255, 255, 0, 200}
	ColorNeedle      = color.RGBA{255, 80, 0, 255}
)

type Game struct {
	Session    *session.Session
	Keyboard   *keyboard.Keyboard
	Autopilot  *driver.Follower
	Camera     *camera.Rig
	TrackImage *ebiten.Image

	AIMode bool
	Chase  bool

	Skids []mgl64.Vec2 // plan positions of sliding wheels
	Trace []mgl64.Vec2 // driven path, sampled every 5 ticks

	// Rendering Scale for the fitted view
	ViewScale   float32
	ViewOffsetX float32
	ViewOffsetY float32

	restart func() (*session.Session, error)
	ctx     context.Context
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		g.AIMode = !g.AIMode
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.Chase = !g.Chase
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.Camera.Cycle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.respawn(); err != nil {
			return err
		}
	}

	var in input.Snapshot
	if g.AIMode {
		in = g.Autopilot.Poll()
	} else {
		in = g.Keyboard.Poll()
	}

	snap := g.Session.Step(g.ctx, in)
	g.Camera.Update(snap, g.Session.TickDT())

	for _, w := range vehicle.Wheels {
		if snap.LosingTraction[w] {
			g.Skids = append(g.Skids, track.ToPlan(snap.WheelPose[w].Position))
		}
	}
	if len(g.Skids) > MaxSkidMarks {
		g.Skids = g.Skids[len(g.Skids)-MaxSkidMarks:]
	}
	if snap.Tick%5 == 0 {
		g.Trace = append(g.Trace, track.ToPlan(snap.Position))
	}
	return nil
}

func (g *Game) respawn() error {
	s, err := g.restart()
	if err != nil {
		return err
	}
	g.Session = s
	g.Autopilot = driver.NewFollower(s.Mesh, s.Publisher)
	spawn, _ := s.Publisher.Latest()
	g.Camera = camera.New(spawn)
	g.Skids = g.Skids[:0]
	g.Trace = g.Trace[:0]
	return nil
}

// toScreen maps a plan position to screen pixels for the active view.
func (g *Game) toScreen(p mgl64.Vec2) (float32, float32) {
	if g.Chase {
		cam := track.ToPlan(g.Camera.Position)
		zoom := ChaseZoom * (1 + g.Camera.Pitch*0.01)
		return float32((p.X()-cam.X())*zoom) + WindowWidth/2, float32(-(p.Y()-cam.Y())*zoom) + WindowHeight/2
	}
	px := g.Session.Grid.PlanToPixel(p)
	return float32(px.X())*g.ViewScale + g.ViewOffsetX, float32(px.Y())*g.ViewScale + g.ViewOffsetY
}

func (g *Game) Draw(screen *ebiten.Image) {
	s := g.Session
	snap, ok := s.Publisher.Latest()
	if !ok {
		return
	}

	// Draw Track Image
	if g.TrackImage != nil {
		op := &ebiten.DrawImageOptions{}
		if g.Chase {
			zoom := ChaseZoom * (1 + g.Camera.Pitch*0.01) * s.Grid.Scale
			x, y := g.toScreen(mgl64.Vec2{})
			op.GeoM.Scale(zoom, zoom)
			op.GeoM.Translate(float64(x), float64(y))
		} else {
			op.GeoM.Scale(float64(g.ViewScale), float64(g.ViewScale))
			op.GeoM.Translate(float64(g.ViewOffsetX), float64(g.ViewOffsetY))
		}
		screen.DrawImage(g.TrackImage, op)
	}

	// Draw Mesh (Debug)
	for _, wp := range s.Mesh.Waypoints {
		p1x, p1y := g.toScreen(wp.Position.Sub(wp.Normal.Mul(wp.Width / 2)))
		p2x, p2y := g.toScreen(wp.Position.Add(wp.Normal.Mul(wp.Width / 2)))
		vector.StrokeLine(screen, p1x, p1y, p2x, p2y, 1, ColorFrenetFrame, true)
	}

	// Checkpoint gates
	for _, gate := range s.Gates {
		wp := s.Mesh.Waypoints[gate.Waypoint]
		half := wp.Width/2 + track.TriggerMargin
		p1x, p1y := g.toScreen(wp.Position.Sub(wp.Normal.Mul(half)))
		p2x, p2y := g.toScreen(wp.Position.Add(wp.Normal.Mul(half)))
		vector.StrokeLine(screen, p1x, p1y, p2x, p2y, 3, ColorGate, true)
	}

	g.drawPath(screen, g.Trace, 2, ColorTrace)

	for _, p := range g.Skids {
		x, y := g.toScreen(p)
		vector.FillRect(screen, x-1, y-1, 2, 2, ColorSkid, false)
	}

	g.drawCar(screen, snap)

	// Draw HUD Background
	vector.FillRect(screen, 0, 0, 170, 260, color.RGBA{0, 0, 0, 180}, true)
	msg := telemetry.HUD(snap)
	mode := "Manual"
	if g.AIMode {
		mode = "Autopilot"
	}
	msg += fmt.Sprintf("Mode:   %s\n", mode)
	msg += "\nF autopilot  V view\nC camera  R respawn"
	ebitenutil.DebugPrint(screen, msg)

	g.drawGauges(screen, snap)
}

func (g *Game) drawPath(screen *ebiten.Image, path []mgl64.Vec2, width float32, col color.Color) {
	for j := 0; j+1 < len(path); j++ {
		p1x, p1y := g.toScreen(path[j])
		p2x, p2y := g.toScreen(path[j+1])
		vector.StrokeLine(screen, p1x, p1y, p2x, p2y, width, col, true)
	}
}

func (g *Game) drawCar(screen *ebiten.Image, snap telemetry.Snapshot) {
	// Body as a rotated rectangle
	var path vector.Path
	for i, c := range snap.Corners(CarLength, CarWidth) {
		sx, sy := g.toScreen(c)
		if i == 0 {
			path.MoveTo(sx, sy)
		} else {
			path.LineTo(sx, sy)
		}
	}
	path.Close()

	var cs ebiten.ColorScale
	cs.ScaleWithColor(ColorCar)
	vector.FillPath(screen, &path, nil, &vector.DrawPathOptions{
		AntiAlias:  true,
		ColorScale: cs,
	})

	// Tyres follow the published wheel poses, steer included.
	for _, w := range vehicle.Wheels {
		pose := snap.WheelPose[w]
		fwd := track.ToPlan(pose.Rotation.Rotate(mgl64.Vec3{0, 0, TyreLength / 2}))
		centre := track.ToPlan(pose.Position)
		p1x, p1y := g.toScreen(centre.Sub(fwd))
		p2x, p2y := g.toScreen(centre.Add(fwd))
		vector.StrokeLine(screen, p1x, p1y, p2x, p2y, 3, ColorTyre, true)
	}

	// Heading, slightly longer than the car
	pos := track.ToPlan(snap.Position)
	h := snap.Heading()
	tip := pos.Add(mgl64.Vec2{math.Sin(h), math.Cos(h)}.Mul(CarLength/2 + 1))
	hx, hy := g.toScreen(pos)
	tx, ty := g.toScreen(tip)
	vector.StrokeLine(screen, hx, hy, tx, ty, 2, ColorCarHeading, true)
}

// drawGauges draws the tachometer and speedometer needles in the bottom right.
func (g *Game) drawGauges(screen *ebiten.Image, snap telemetry.Snapshot) {
	const radius = 50
	dials := []struct {
		x, y     float32
		fraction float64
	}{
		{WindowWidth - 240, WindowHeight - 70, telemetry.TachNeedle(snap.EngineRPM)},
		{WindowWidth - 110, WindowHeight - 70, telemetry.SpeedNeedle(snap.SpeedKmh)},
	}
	for _, d := range dials {
		vector.StrokeCircle(screen, d.x, d.y, radius, 2, color.White, true)
		a := mgl64.DegToRad(telemetry.NeedleAngle(225, -45, d.fraction))
		nx := d.x + float32(math.Cos(a))*radius*0.9
		ny := d.y - float32(math.Sin(a))*radius*0.9
		vector.StrokeLine(screen, d.x, d.y, nx, ny, 2, ColorNeedle, true)
	}
	ebitenutil.DebugPrintAt(screen, "RPM", WindowWidth-250, WindowHeight-40)
	ebitenutil.DebugPrintAt(screen, "KM/H", WindowWidth-124, WindowHeight-40)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return WindowWidth, WindowHeight
}

func RenderGrid(g *track.Grid) *ebiten.Image {
	img := ebiten.NewImage(g.Width, g.Height)

	pixels := make([]byte, g.Width*g.Height*4)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			cell := g.Get(x, y)
			idx := (y*g.Width + x) * 4

			var c color.RGBA
			switch cell.Type {
			case track.CellTarmac, track.CellFinish:
				c = ColorTarmac
			case track.CellGravel:
				c = ColorGravel
			case track.CellWall:
				c = ColorWall
			case track.CellStart:
				c = ColorStart
			case track.CellDirection:
				c = ColorDir
			}

			pixels[idx] = c.R
			pixels[idx+1] = c.G
			pixels[idx+2] = c.B
			pixels[idx+3] = 255
		}
	}

	img.WritePixels(pixels)
	return img
}

func main() {
	cfgPath := flag.String("config", "", "Settings file (JSON, YAML or TOML); empty uses defaults")
	flag.Parse()

	f, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(f.LogsDir, 0755); err != nil {
		log.Fatal(err)
	}
	logFile, err := os.OpenFile(filepath.Join(f.LogsDir, "app.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()

	logs := logging.NewSlogManager()
	opts := logging.Options{}
	if f.Graylog.Enabled {
		opts.GraylogAddress = f.Graylog.Address
	}
	_ = logs.Setup(logFile, f.LogLevel, opts)
	defer logs.Close()
	logger := logs.Logger()

	cfg, err := f.VehicleConfig()
	if err != nil {
		log.Fatal(err)
	}

	grid, mesh, err := track.LoadTrackFromImage(f.Sim.TrackPath, f.Sim.TrackScale)
	if err != nil {
		log.Fatal(err)
	}

	var metrics *telemetry.Metrics
	if f.Otel.Enabled {
		if metrics, err = telemetry.NewMetrics(nil); err != nil {
			log.Fatal(err)
		}
	}

	params := chassis.DefaultParams()
	params.Gravity = f.Sim.Gravity
	newSession := func() (*session.Session, error) {
		return session.New(cfg, grid, mesh, session.Options{
			Logger:   logger,
			Metrics:  metrics,
			Params:   params,
			Gates:    f.Sim.Gates,
			Required: f.Sim.RequiredCheckpoints,
			TickDT:   f.Sim.TickSeconds(),
		})
	}
	sess, err := newSession()
	if err != nil {
		log.Fatal(err)
	}

	spawn, _ := sess.Publisher.Latest()

	ebiten.SetWindowSize(WindowWidth, WindowHeight)
	ebiten.SetWindowTitle("Drift Sim")
	ebiten.SetTPS(int(math.Round(1 / sess.TickDT())))

	// Fit the whole track in the window
	winW, winH := float64(WindowWidth), float64(WindowHeight)
	viewScale := float32(math.Min(winW/float64(grid.Width), winH/float64(grid.Height))) * ViewScaleMargin
	viewOffsetX := (float32(winW) - float32(grid.Width)*viewScale) / 2
	viewOffsetY := (float32(winH) - float32(grid.Height)*viewScale) / 2

	game := &Game{
		Session:     sess,
		Keyboard:    keyboard.New(),
		Autopilot:   driver.NewFollower(mesh, sess.Publisher),
		Camera:      camera.New(spawn),
		TrackImage:  RenderGrid(grid),
		AIMode:      false,
		Chase:       true,
		ViewScale:   viewScale,
		ViewOffsetX: viewOffsetX,
		ViewOffsetY: viewOffsetY,
		restart:     newSession,
		ctx:         context.Background(),
	}

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
