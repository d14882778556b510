package model

import (
	"fmt"
	"strings"
)

// Shape is the figure a player is drawn as
type Shape uint8

const (
	ShapeTriangle Shape = 1
	ShapeCircle   Shape = 2
	ShapeBox      Shape = 3
)

// DefaultShape is assigned to freshly created players
const DefaultShape = ShapeTriangle

// Valid reports whether s is one of the known shapes
func (s Shape) Valid() bool {
	return s >= ShapeTriangle && s <= ShapeBox
}

func (s Shape) String() string {
	switch s {
	case ShapeTriangle:
		return "triangle"
	case ShapeCircle:
		return "circle"
	case ShapeBox:
		return "box"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// ParseShape accepts a shape name or its wire number
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "triangle", "1":
		return ShapeTriangle, nil
	case "circle", "2":
		return ShapeCircle, nil
	case "box", "3":
		return ShapeBox, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidShape, s)
}

// MarshalText encodes the shape by name
func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShape, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a shape name
func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
