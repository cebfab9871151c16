package chart

import "encoding/json"

// Stop is one point of a continuous colour scale.
type Stop struct {
	At    float64
	Color string
}

// MarshalJSON encodes a stop as the [position, colour] pair plotly expects.
func (s Stop) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.At, s.Color})
}

// Scale is an explicit colour scale.
type Scale []Stop

// evenly spreads colours over [0, 1].
func evenly(colors ...string) Scale {
	s := make(Scale, len(colors))
	last := float64(len(colors) - 1)
	for i, c := range colors {
		s[i] = Stop{At: float64(i) / last, Color: c}
	}
	return s
}

// Named plotly scales. Viridis ships with plotly.js; the carto scales do not,
// so they are spelled out.
const ScaleViridis = "Viridis"

var (
	ScaleBurg = evenly(
		"rgb(255, 198, 196)",
		"rgb(244, 163, 168)",
		"rgb(227, 129, 145)",
		"rgb(204, 96, 125)",
		"rgb(173, 70, 108)",
		"rgb(139, 48, 88)",
		"rgb(103, 32, 68)",
	)
	ScaleSunsetDark = evenly(
		"rgb(252, 222, 156)",
		"rgb(250, 164, 118)",
		"rgb(240, 116, 110)",
		"rgb(227, 79, 111)",
		"rgb(220, 57, 119)",
		"rgb(185, 37, 122)",
		"rgb(124, 29, 111)",
	)
)
