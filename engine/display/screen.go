// Package display draws the experiment with SDL3.
package display

import (
	"context"
	"fmt"
	"time"

	"github.com/Zyko0/go-sdl3/img"
	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"
	"go.uber.org/zap"

	"n170/engine"
)

const (
	CrossSize      = 20
	CrossThickness = 4
)

type texture struct {
	tex  *sdl.Texture
	w, h float32
}

// Screen is a full-screen or windowed SDL presentation surface.
type Screen struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	font     *ttf.Font
	textures map[string]*texture
	logger   *zap.Logger

	w, h  int
	scale float32
	bg    sdl.Color
	text  sdl.Color
}

func toSDL(c engine.Color) sdl.Color {
	return sdl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Open initializes SDL and creates the presentation window. On failure every
// partially acquired SDL resource is released before returning.
func Open(cfg *engine.Config, logger *zap.Logger) (*Screen, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init: %w", err)
	}
	if err := ttf.Init(); err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("TTF_Init: %w", err)
	}

	w, h, calibrated := cfg.ScreenSize()
	if !cfg.SmallMonitor && !calibrated {
		logger.Warn("Monitor profile not found, using default resolution",
			zap.String("monitor", cfg.Monitor), zap.Int("width", w), zap.Int("height", h))
	}

	s := &Screen{
		textures: make(map[string]*texture),
		logger:   logger,
		w:        w,
		h:        h,
		scale:    cfg.ScaleFactor,
		bg:       toSDL(cfg.BGColor),
		text:     toSDL(cfg.TextColor),
	}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	windowFlags := sdl.WINDOW_RESIZABLE
	if !cfg.SmallMonitor {
		windowFlags = sdl.WINDOW_FULLSCREEN
	}
	var err error
	s.window, s.renderer, err = sdl.CreateWindowAndRenderer(cfg.Experiment, w, h, windowFlags)
	if err != nil {
		return nil, fmt.Errorf("CreateWindowAndRenderer: %w", err)
	}
	if cfg.VSync {
		s.renderer.SetVSync(1)
	} else {
		s.renderer.SetVSync(0)
	}

	fontPath := cfg.FontFile
	if fontPath == "" {
		fontPath = DefaultFontPath(cfg.FontDir)
	}
	if fontPath == "" {
		logger.Warn("No font found, messages will not be shown")
	} else if s.font, err = ttf.OpenFont(fontPath, float32(cfg.FontSize)); err != nil {
		return nil, fmt.Errorf("load font %s: %w", fontPath, err)
	}
	ok = true
	return s, nil
}

func (s *Screen) clear() {
	s.renderer.SetDrawColor(s.bg.R, s.bg.G, s.bg.B, s.bg.A)
	s.renderer.Clear()
}

func (s *Screen) drawFixation(c engine.Color) {
	s.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
	mx, my := float32(s.w)/2, float32(s.h)/2
	horiz := sdl.FRect{X: mx - CrossSize, Y: my - CrossThickness/2, W: 2 * CrossSize, H: CrossThickness}
	vert := sdl.FRect{X: mx - CrossThickness/2, Y: my - CrossSize, W: CrossThickness, H: 2 * CrossSize}
	s.renderer.RenderFillRect(&horiz)
	s.renderer.RenderFillRect(&vert)
}

func (s *Screen) load(path string) (*texture, error) {
	if t, ok := s.textures[path]; ok {
		return t, nil
	}
	tex, err := img.LoadTexture(s.renderer, path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	w, h, _ := tex.Size()
	t := &texture{tex: tex, w: w, h: h}
	s.textures[path] = t
	return t, nil
}

// Preload decodes every image into a texture before the first trial.
func (s *Screen) Preload(paths []string) error {
	for _, path := range paths {
		if _, err := s.load(path); err != nil {
			return err
		}
	}
	s.logger.Info("Images preloaded", zap.Int("count", len(s.textures)))
	return nil
}

func (s *Screen) ShowText(msg string) error {
	s.clear()
	if s.font != nil && msg != "" {
		surf, err := s.font.RenderTextBlended(msg, s.text)
		if err != nil {
			return fmt.Errorf("render text: %w", err)
		}
		defer surf.Destroy()
		tex, err := s.renderer.CreateTextureFromSurface(surf)
		if err != nil {
			return fmt.Errorf("text texture: %w", err)
		}
		defer tex.Destroy()
		tw, th := float32(surf.W), float32(surf.H)
		dst := sdl.FRect{X: (float32(s.w) - tw) / 2, Y: (float32(s.h) - th) / 2, W: tw, H: th}
		s.renderer.RenderTexture(tex, nil, &dst)
	}
	s.renderer.Present()
	return nil
}

func (s *Screen) ShowFixation(c engine.Color) error {
	s.clear()
	s.drawFixation(c)
	s.renderer.Present()
	return nil
}

func (s *Screen) ShowImage(path string, fixation engine.Color) error {
	t, err := s.load(path)
	if err != nil {
		return err
	}
	s.clear()
	dst := sdl.FRect{
		X: (float32(s.w) - t.w*s.scale) / 2,
		Y: (float32(s.h) - t.h*s.scale) / 2,
		W: t.w * s.scale,
		H: t.h * s.scale,
	}
	s.renderer.RenderTexture(t.tex, nil, &dst)
	s.drawFixation(fixation)
	s.renderer.Present()
	return nil
}

// pump drains pending events. Escape or closing the window aborts; any other
// key is reported as pressed.
func (s *Screen) pump() (pressed bool, err error) {
	for {
		var ev sdl.Event
		if !sdl.PollEvent(&ev) {
			return pressed, nil
		}
		switch ev.Type {
		case sdl.EVENT_QUIT:
			return pressed, engine.ErrAborted
		case sdl.EVENT_KEY_DOWN:
			if ev.KeyboardEvent().Key == sdl.K_ESCAPE {
				return pressed, engine.ErrAborted
			}
			pressed = true
		}
	}
}

func (s *Screen) WaitKey(ctx context.Context) error {
	for {
		pressed, err := s.pump()
		if err != nil {
			return err
		}
		if pressed {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		sdl.Delay(1)
	}
}

func (s *Screen) Wait(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		if _, err := s.pump(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if remaining > 2*time.Millisecond {
			sdl.Delay(1)
		}
	}
}

func (s *Screen) Close() error {
	for path, t := range s.textures {
		t.tex.Destroy()
		delete(s.textures, path)
	}
	if s.font != nil {
		s.font.Close()
		s.font = nil
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
	ttf.Quit()
	sdl.Quit()
	return nil
}
