package models

// Observation is the current weather for a city.
type Observation struct {
	City        string     `json:"city"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Keyword     string     `json:"keyword"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Temperature float64    `json:"temperature"`
	FeelsLike   float64    `json:"feelsLike"`
	Humidity    float64    `json:"humidity"`
	WindSpeed   float64    `json:"windSpeed"`
	Sunrise     *Timestamp `json:"sunrise,omitempty"`
	Sunset      *Timestamp `json:"sunset,omitempty"`
	ObservedAt  *Timestamp `json:"observedAt,omitempty"`
}

// Background is either a utility class list or an inline CSS value, never both.
type Background struct {
	Class string `json:"class,omitempty"`
	Style string `json:"style,omitempty"`
}

// Theme is the presentation derived from an observation.
type Theme struct {
	Background Background `json:"background"`
	Effect     string     `json:"effect"`
	Icon       string     `json:"icon"`
}

// Pulse is a repeating keyframe animation.
type Pulse struct {
	From        float64 `json:"from"`
	To          float64 `json:"to"`
	Duration    float64 `json:"duration"`
	RepeatDelay float64 `json:"repeatDelay,omitempty"`
}

// Drop is one raindrop in a rain row.
type Drop struct {
	Edge     string  `json:"edge"`
	Offset   float64 `json:"offset"`
	Bottom   float64 `json:"bottom"`
	Delay    float64 `json:"delay"`
	Duration float64 `json:"duration"`
	Splat    bool    `json:"splat"`
}

// Particle is one snowflake or star.
type Particle struct {
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Delay    float64 `json:"delay"`
	Duration float64 `json:"duration"`
}

// Cloud is one drifting cloud.
type Cloud struct {
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Drift    float64 `json:"drift"`
	Duration float64 `json:"duration"`
}

// Layer is one drawable element of a scene.
type Layer struct {
	Kind      string     `json:"kind"`
	Row       string     `json:"row,omitempty"`
	Intensity string     `json:"intensity,omitempty"`
	Drops     []Drop     `json:"drops,omitempty"`
	Particles []Particle `json:"particles,omitempty"`
	Clouds    []Cloud    `json:"clouds,omitempty"`
	Pulse     *Pulse     `json:"pulse,omitempty"`
}

// Scene is the ordered list of layers for an effect, back to front.
type Scene struct {
	Effect string  `json:"effect"`
	Layers []Layer `json:"layers"`
}

// WeatherResponse is the response for a one-shot weather lookup.
type WeatherResponse struct {
	Observation Observation `json:"observation"`
	IsDay       bool        `json:"isDay"`
	Theme       Theme       `json:"theme"`
	Scene       Scene       `json:"scene"`
}

// ClassifyResponse is the result of a classification.
type ClassifyResponse struct {
	Theme Theme  `json:"theme"`
	Rule  string `json:"rule"`
}
