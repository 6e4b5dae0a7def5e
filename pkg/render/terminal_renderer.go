package render

import (
	uv "github.com/charmbracelet/ultraviolet"
)

// TerminalRenderer adapts a Framebuffer to an ultraviolet terminal screen,
// presenting through the half-block double-resolution trick implemented by
// Framebuffer.Draw. A terminal row holds two framebuffer rows, so a caller
// sizing its Framebuffer should use FramebufferSize rather than the raw
// terminal dimensions.
type TerminalRenderer struct {
	screen uv.Screen
	area   uv.Rectangle
	width  int
	height int
}

// NewTerminalRenderer wraps an already-started terminal screen of the given
// cell dimensions.
func NewTerminalRenderer(screen uv.Screen, width, height int) *TerminalRenderer {
	return &TerminalRenderer{
		screen: screen,
		area:   uv.Rect(0, 0, width, height),
		width:  width,
		height: height,
	}
}

// FramebufferSize returns the pixel dimensions a Framebuffer should be
// allocated with to exactly fill this renderer: full terminal width,
// double terminal height (one framebuffer row per half-block).
func (t *TerminalRenderer) FramebufferSize() (width, height int) {
	return t.width, t.height * 2
}

// Render draws fb's pixels into the terminal's cell grid. It does not
// itself push anything to the real terminal; call Flush for that.
func (t *TerminalRenderer) Render(fb *Framebuffer) {
	fb.Draw(t.screen, t.area)
}

// Flush pushes the rendered cells to the terminal, if the underlying
// screen exposes a way to do so.
func (t *TerminalRenderer) Flush() error {
	if f, ok := t.screen.(interface{ Render() error }); ok {
		return f.Render()
	}
	if f, ok := t.screen.(interface{ Display() error }); ok {
		return f.Display()
	}
	return nil
}
