package display

import (
	"errors"
	"strconv"

	"github.com/Zyko0/go-sdl3/sdl"
	"github.com/Zyko0/go-sdl3/ttf"

	"n170/engine"
)

// ErrNoFont means the subject dialog has nothing to draw its labels with.
var ErrNoFont = errors.New("no font found for the subject dialog; set font_file or pass --subject")

const (
	dialogW = 520
	dialogH = 240
)

// digitsOnly keeps the decimal digits of s.
func digitsOnly(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}

func drawLabel(renderer *sdl.Renderer, font *ttf.Font, text string, color sdl.Color, x, y float32) {
	if text == "" {
		return
	}
	surf, err := font.RenderTextBlended(text, color)
	if err != nil || surf == nil {
		return
	}
	defer surf.Destroy()
	tex, err := renderer.CreateTextureFromSurface(surf)
	if err != nil {
		return
	}
	defer tex.Destroy()
	r := sdl.FRect{X: x, Y: y, W: float32(surf.W), H: float32(surf.H)}
	renderer.RenderTexture(tex, nil, &r)
}

func inside(r sdl.FRect, x, y float32) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// AskSubject shows a small window asking for the numeric subject ID. The
// experiment name is displayed but fixed. Closing the window or pressing
// Escape returns engine.ErrCancelled.
func AskSubject(cfg *engine.Config, defaults engine.Cache) (engine.Subject, error) {
	subject := engine.Subject{Experiment: cfg.Experiment}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return subject, err
	}
	defer sdl.Quit()

	if err := ttf.Init(); err != nil {
		return subject, err
	}
	defer ttf.Quit()

	window, renderer, err := sdl.CreateWindowAndRenderer("Participant info", dialogW, dialogH, 0)
	if err != nil {
		return subject, err
	}
	defer window.Destroy()
	defer renderer.Destroy()

	fontPath := cfg.FontFile
	if fontPath == "" {
		fontPath = DefaultFontPath(cfg.FontDir)
	}
	if fontPath == "" {
		return subject, ErrNoFont
	}
	font, err := ttf.OpenFont(fontPath, 18)
	if err != nil {
		return subject, err
	}
	defer font.Close()

	idText := strconv.Itoa(defaults.SubjectID)
	message := ""
	idBox := sdl.FRect{X: 180, Y: 40, W: 300, H: 30}
	okBtn := sdl.FRect{X: 300, Y: 170, W: 80, H: 36}
	cancelBtn := sdl.FRect{X: 400, Y: 170, W: 80, H: 36}

	window.StartTextInput()
	defer window.StopTextInput()

	submit := func() bool {
		id, err := engine.ParseSubjectID(idText)
		if err != nil {
			message = err.Error()
			return false
		}
		subject.ID = id
		return true
	}

	for {
		var e sdl.Event
		for sdl.PollEvent(&e) {
			switch e.Type {
			case sdl.EVENT_QUIT:
				return subject, engine.ErrCancelled
			case sdl.EVENT_MOUSE_BUTTON_DOWN:
				me := e.MouseButtonEvent()
				if inside(okBtn, me.X, me.Y) && submit() {
					return subject, nil
				}
				if inside(cancelBtn, me.X, me.Y) {
					return subject, engine.ErrCancelled
				}
			case sdl.EVENT_TEXT_INPUT:
				idText += digitsOnly(e.TextInputEvent().Text)
			case sdl.EVENT_KEY_DOWN:
				switch e.KeyboardEvent().Key {
				case sdl.K_BACKSPACE:
					if len(idText) > 0 {
						idText = idText[:len(idText)-1]
					}
				case sdl.K_RETURN:
					if submit() {
						return subject, nil
					}
				case sdl.K_ESCAPE:
					return subject, engine.ErrCancelled
				}
			}
		}

		black := sdl.Color{R: 0, G: 0, B: 0, A: 255}
		renderer.SetDrawColor(240, 240, 240, 255)
		renderer.Clear()

		drawLabel(renderer, font, "SubjectID", black, 30, 45)
		renderer.SetDrawColor(255, 255, 255, 255)
		renderer.RenderFillRect(&idBox)
		renderer.SetDrawColor(0, 120, 255, 255)
		renderer.RenderRect(&idBox)
		drawLabel(renderer, font, idText, black, idBox.X+5, idBox.Y+5)

		drawLabel(renderer, font, "Experiment", black, 30, 95)
		drawLabel(renderer, font, subject.Experiment, sdl.Color{R: 90, G: 90, B: 90, A: 255}, idBox.X+5, 95)

		drawLabel(renderer, font, message, sdl.Color{R: 200, G: 0, B: 0, A: 255}, 30, 135)

		renderer.SetDrawColor(0, 150, 0, 255)
		renderer.RenderFillRect(&okBtn)
		drawLabel(renderer, font, "OK", sdl.Color{R: 255, G: 255, B: 255, A: 255}, okBtn.X+28, okBtn.Y+8)
		renderer.SetDrawColor(200, 200, 200, 255)
		renderer.RenderFillRect(&cancelBtn)
		drawLabel(renderer, font, "Cancel", black, cancelBtn.X+12, cancelBtn.Y+8)

		renderer.Present()
		sdl.Delay(10)
	}
}
