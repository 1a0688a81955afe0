// Package badge renders shields-style SVG coverage badges.
package badge

import (
	"fmt"
	"html/template"
	"io"
)

const (
	StyleFlat       = "flat"
	StyleFlatSquare = "flat-square"
)

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="{{.Width}}" height="20" role="img" aria-label="{{.Label}}: {{.Value}}">
  <title>{{.Label}}: {{.Value}}</title>
  <linearGradient id="s" x2="0" y2="100%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
  <clipPath id="r">
    <rect width="{{.Width}}" height="20" rx="{{.Rx}}" fill="#fff"/>
  </clipPath>
  <g clip-path="url(#r)">
    <rect width="{{.LabelWidth}}" height="20" fill="#555"/>
    <rect x="{{.LabelWidth}}" width="{{.ValueWidth}}" height="20" fill="{{.Color}}"/>
    <rect width="{{.Width}}" height="20" fill="url(#s)"/>
  </g>
  <g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" text-rendering="geometricPrecision" font-size="110">
    <text aria-hidden="true" x="{{.LabelX}}" y="150" fill="#010101" fill-opacity=".3" transform="scale(.1)" textLength="{{.LabelTextWidth}}">{{.Label}}</text>
    <text x="{{.LabelX}}" y="140" transform="scale(.1)" fill="#fff" textLength="{{.LabelTextWidth}}">{{.Label}}</text>
    <text aria-hidden="true" x="{{.ValueX}}" y="150" fill="#010101" fill-opacity=".3" transform="scale(.1)" textLength="{{.ValueTextWidth}}">{{.Value}}</text>
    <text x="{{.ValueX}}" y="140" transform="scale(.1)" fill="#fff" textLength="{{.ValueTextWidth}}">{{.Value}}</text>
  </g>
</svg>`

var tmpl = template.Must(template.New("badge").Parse(svgTemplate))

type templateData struct {
	Label          string
	Value          string
	Color          string
	Width          int
	LabelWidth     int
	ValueWidth     int
	LabelX         int
	ValueX         int
	LabelTextWidth int
	ValueTextWidth int
	Rx             int
}

// Writer renders badges for the badge command.
type Writer struct{}

// Write renders one badge. An empty label defaults to "rule coverage"
// and an empty style to flat; an unknown style is an error so a typo
// on the flag does not silently produce the wrong artwork.
func (Writer) Write(w io.Writer, percent float64, label, style string) error {
	if label == "" {
		label = "rule coverage"
	}

	rx := 3
	switch style {
	case "", StyleFlat:
	case StyleFlatSquare:
		rx = 0
	default:
		return fmt.Errorf("unknown badge style %q", style)
	}

	value := formatPercent(percent)
	// Width tracking is approximate: 7px per glyph plus padding, the
	// same heuristic shields.io uses for Verdana at this size.
	labelWidth := len(label)*7 + 10
	valueWidth := len(value)*7 + 10

	return tmpl.Execute(w, templateData{
		Label:          label,
		Value:          value,
		Color:          colorForPercent(percent),
		Width:          labelWidth + valueWidth,
		LabelWidth:     labelWidth,
		ValueWidth:     valueWidth,
		LabelX:         labelWidth * 5,
		ValueX:         (labelWidth + valueWidth/2) * 10,
		LabelTextWidth: len(label) * 7 * 10,
		ValueTextWidth: len(value) * 7 * 10,
		Rx:             rx,
	})
}

func formatPercent(p float64) string {
	if p == float64(int(p)) {
		return fmt.Sprintf("%.0f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

func colorForPercent(p float64) string {
	switch {
	case p >= 90:
		return "#4c1"
	case p >= 75:
		return "#97ca00"
	case p >= 60:
		return "#dfb317"
	default:
		return "#e05d44"
	}
}
