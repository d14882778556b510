// Package view draws a client's entity table onto a terminal screen.
package view

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/mcoot/shapesync/internal/client"
	"github.com/mcoot/shapesync/internal/model"
)

// World units covered by one terminal cell. Cells are roughly twice as tall
// as they are wide, so a row spans twice the units of a column.
const (
	UnitsPerColumn = 20.0
	UnitsPerRow    = 40.0
)

var (
	styleLocal  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleRemote = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleLabel  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	styleOrigin = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
)

// Status is the text shown on the bottom line
type Status struct {
	State   client.State
	ID      model.StableID
	Name    string
	Message string
}

// Glyph returns the rune a shape is drawn with
func Glyph(s model.Shape) rune {
	switch s {
	case model.ShapeTriangle:
		return '▲'
	case model.ShapeCircle:
		return '●'
	case model.ShapeBox:
		return '■'
	default:
		return '?'
	}
}

// Draw clears the screen and renders every entity relative to a camera
// centred on the local entity, or on the world origin when there is none.
// The caller is responsible for calling Show.
func Draw(screen tcell.Screen, entities []client.Entity, status Status) {
	screen.Clear()
	w, h := screen.Size()
	if w <= 0 || h <= 1 {
		return
	}

	var camera model.Vec2
	for _, e := range entities {
		if e.Local {
			camera = e.Position
			break
		}
	}

	// the last row is the status bar
	field := h - 1
	if x, y, ok := project(model.Vec2{}, camera, w, field); ok {
		screen.SetContent(x, y, '+', nil, styleOrigin)
	}

	// remote entities first so the local one is drawn on top
	for _, local := range []bool{false, true} {
		for _, e := range entities {
			if e.Local != local {
				continue
			}
			x, y, ok := project(e.Position, camera, w, field)
			if !ok {
				continue
			}
			style := styleRemote
			if e.Local {
				style = styleLocal
			}
			screen.SetContent(x, y, Glyph(e.Shape), nil, style)
			if y > 0 {
				label := []rune(e.Name)
				drawText(screen, x-len(label)/2, y-1, w, string(label), styleLabel)
			}
		}
	}

	drawStatus(screen, w, h-1, len(entities), status)
}

// project maps a world position to a cell of a w by h field
func project(pos, camera model.Vec2, w, h int) (int, int, bool) {
	rel := pos.Sub(camera)
	x := w/2 + int(math.Round(rel.X/UnitsPerColumn))
	y := h/2 + int(math.Round(rel.Y/UnitsPerRow))
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0, 0, false
	}
	return x, y, true
}

func drawStatus(screen tcell.Screen, w, y, players int, status Status) {
	for x := 0; x < w; x++ {
		screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	// state and message always show; the rest only where it fits whole
	text := fmt.Sprintf(" %s", status.State)
	if status.Message != "" {
		text += " | " + status.Message
	}
	var extra []string
	if status.ID != model.NoStableID {
		extra = append(extra, fmt.Sprintf(" | #%d %s", status.ID, status.Name))
	}
	extra = append(extra, fmt.Sprintf(" | players: %d", players))
	for _, part := range extra {
		if utf8.RuneCountInString(text+part) <= w {
			text += part
		}
	}
	drawText(screen, 0, y, w, text, styleStatus)
}

func drawText(screen tcell.Screen, x, y, w int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= w {
			return
		}
		if x >= 0 {
			screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
}
