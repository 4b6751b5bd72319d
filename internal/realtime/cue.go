package realtime

// Voice is one oscillator of a cue. Times are milliseconds from the start
// of the cue; the client ramps linearly between frequency points.
type Voice struct {
	Wave    string  `json:"wave"`
	StartMS int     `json:"start_ms"`
	StopMS  int     `json:"stop_ms"`
	Freq    []Point `json:"freq"`
	Gain    []Point `json:"gain"`
}

// Point is a value reached at a time offset.
type Point struct {
	AtMS  int     `json:"at_ms"`
	Value float64 `json:"value"`
}

// Cue is a short synthesised sound the client plays.
type Cue struct {
	Kind   string  `json:"kind"`
	Voices []Voice `json:"voices"`
}

const (
	CueSuccess = "success"
	CueFailure = "failure"
)

// successEnvelope fades in over 100ms and decays by 600ms.
var successEnvelope = []Point{{0, 0}, {100, 0.2}, {600, 0.001}}

// SuccessCue is a C major triad played as a quick triangle-wave arpeggio.
var SuccessCue = Cue{
	Kind: CueSuccess,
	Voices: []Voice{
		{Wave: "triangle", StartMS: 0, StopMS: 600, Freq: []Point{{0, 523.25}}, Gain: successEnvelope},
		{Wave: "triangle", StartMS: 50, StopMS: 600, Freq: []Point{{50, 659.25}}, Gain: successEnvelope},
		{Wave: "triangle", StartMS: 100, StopMS: 600, Freq: []Point{{100, 783.99}}, Gain: successEnvelope},
	},
}

// FailureCue is two descending sawtooth pulses.
var FailureCue = Cue{
	Kind: CueFailure,
	Voices: []Voice{
		{
			Wave: "sawtooth", StartMS: 0, StopMS: 500,
			Freq: []Point{{0, 400}, {100, 350}, {200, 380}, {500, 200}},
			Gain: []Point{{0, 0.2}, {500, 0}},
		},
		{
			Wave: "sawtooth", StartMS: 500, StopMS: 900,
			Freq: []Point{{500, 400}, {900, 200}},
			Gain: []Point{{500, 0.2}, {900, 0}},
		},
	},
}
