// Package colors maps category names to display colours.
//
// The mapping hashes the UTF-8 bytes of the name with 32-bit FNV-1a and
// picks from a fixed palette, so a category keeps its colour across runs,
// processes and machines.
package colors

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Fixed colours for the two transaction kinds.
const (
	CreditHex = "#009900"
	DebitHex  = "#ff4040"
)

// Palette is the category palette. Its order is part of the mapping.
var Palette = []Color{
	{1.0, 1.0, 1.0},
	{1.0, 1.0, 0.6},
	{1.0, 1.0, 0.8},
	{1.0, 0.6, 1.0},
	{1.0, 0.6, 0.6},
	{1.0, 0.6, 0.8},
	{1.0, 0.8, 1.0},
	{1.0, 0.8, 0.6},
	{1.0, 0.8, 0.8},
	{0.6, 1.0, 1.0},
	{0.6, 1.0, 0.6},
	{0.6, 1.0, 0.8},
	{0.6, 0.6, 1.0},
	{0.6, 0.6, 0.6},
	{0.6, 0.6, 0.8},
	{0.6, 0.8, 1.0},
	{0.6, 0.8, 0.6},
	{0.6, 0.8, 0.8},
	{0.8, 1.0, 1.0},
	{0.8, 1.0, 0.6},
	{0.8, 1.0, 0.8},
	{0.8, 0.6, 1.0},
	{0.8, 0.6, 0.6},
	{0.8, 0.6, 0.8},
	{0.8, 0.8, 1.0},
	{0.8, 0.8, 0.6},
	{0.8, 0.8, 0.8},
}

// Index returns the palette slot for a category name.
func Index(category string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(category))
	return int(h.Sum32() % uint32(len(Palette)))
}

// For returns the colour of a category name.
func For(category string) Color {
	return Palette[Index(category)]
}

// Hex returns the colour of a category name as #rrggbb.
func Hex(category string) string {
	return For(category).Hex()
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return int(v * 255)
}

// Luminance weighs the channels of a #rrggbb colour 0.3/0.6/0.1.
func Luminance(hex string) (float64, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, fmt.Errorf("invalid colour %q", hex)
	}
	var rgb [3]float64
	for i := range rgb {
		v, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid colour %q: %w", hex, err)
		}
		rgb[i] = float64(v)
	}
	return rgb[0]*0.3 + rgb[1]*0.6 + rgb[2]*0.1, nil
}

// IsTooLight reports whether text in this colour would be hard to read on a
// light background. Invalid colours are treated as light.
func IsTooLight(hex string) bool {
	l, err := Luminance(hex)
	if err != nil {
		return true
	}
	return l > 96
}
