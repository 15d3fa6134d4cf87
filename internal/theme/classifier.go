package theme

import "strings"

// Fixed backgrounds for heavy weather. They ignore the day flag.
var (
	thunderstormBackground = Background{Style: "linear-gradient(to bottom, #0F2027, #2C3E50)"}
	heavyRainBackground    = Background{Style: "linear-gradient(to bottom, #141E30, #243B55)"}
	rainBackground         = Background{Style: "linear-gradient(to bottom, #232526, #414345)"}
)

// conditions is the normalized view of an Input plus the derived rain flags.
type conditions struct {
	category    string
	description string
	isDay       bool
	isRain      bool
	isHeavyRain bool
}

func newConditions(in Input, isDay bool) conditions {
	c := conditions{
		category:    normalize(in.Category),
		description: normalize(in.Description),
		isDay:       isDay,
	}
	c.isRain = c.category == "rain" ||
		(strings.Contains(c.description, "rain") && !strings.Contains(c.description, "drizzle"))
	c.isHeavyRain = c.isRain &&
		(strings.Contains(c.description, "heavy") || strings.Contains(c.description, "intensity"))
	return c
}

// rule pairs a predicate with the theme it produces. Rules are evaluated in order.
type rule struct {
	name  string
	match func(c conditions) bool
	build func(c conditions) (Background, Effect)
}

var rules = []rule{
	{
		name:  "thunderstorm",
		match: func(c conditions) bool { return c.category == "thunderstorm" },
		build: func(conditions) (Background, Effect) {
			return thunderstormBackground, EffectThunderstorm
		},
	},
	{
		name:  "heavy-rain",
		match: func(c conditions) bool { return c.isHeavyRain },
		build: func(conditions) (Background, Effect) {
			return heavyRainBackground, EffectHeavyRain
		},
	},
	{
		name:  "rain",
		match: func(c conditions) bool { return c.isRain },
		build: func(conditions) (Background, Effect) {
			return rainBackground, EffectRain
		},
	},
	{
		name:  "default",
		match: func(conditions) bool { return true },
		build: func(c conditions) (Background, Effect) {
			return lookupBackground(c.isDay, c.category), ambientEffect(c)
		},
	},
}

// Classify maps an observation and the frozen day flag to a theme.
// It is total: unknown categories fall through to the default gradient.
func Classify(in Input, isDay bool) Theme {
	c := newConditions(in, isDay)
	for _, r := range rules {
		if !r.match(c) {
			continue
		}
		bg, effect := r.build(c)
		return Theme{
			Background: bg,
			Effect:     effect,
			Icon:       selectIcon(c),
		}
	}
	// unreachable: the last rule always matches
	return Placeholder()
}

// RuleName returns the name of the first rule matching the input.
func RuleName(in Input, isDay bool) string {
	c := newConditions(in, isDay)
	for _, r := range rules {
		if r.match(c) {
			return r.name
		}
	}
	return ""
}

func ambientEffect(c conditions) Effect {
	switch c.category {
	case "snow":
		return EffectSnow
	case "clouds":
		return EffectClouds
	case "clear":
		if c.isDay {
			return EffectClearDay
		}
		return EffectClearNight
	default:
		return EffectNone
	}
}

// selectIcon follows the category keyword only; the description never changes the icon.
func selectIcon(c conditions) Icon {
	switch c.category {
	case "clear":
		if c.isDay {
			return IconSunSpin
		}
		return IconMoonGlow
	case "rain":
		return IconRainBob
	case "snow":
		return IconSnowDrift
	case "thunderstorm":
		return IconThunderPulse
	case "mist", "fog":
		return IconFogFade
	default:
		return IconCloudDrift
	}
}
