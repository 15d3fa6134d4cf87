package theme

// paletteGroup collapses categories that share a gradient.
type paletteGroup string

const (
	groupClear        paletteGroup = "clear"
	groupSnow         paletteGroup = "snow"
	groupThunderstorm paletteGroup = "thunderstorm"
	groupFog          paletteGroup = "fog"
	groupDefault      paletteGroup = "default"
)

type paletteKey struct {
	day   bool
	group paletteGroup
}

// palettes maps day period and category group to a gradient class.
// Thunderstorm entries are kept for completeness; Classify resolves
// thunderstorms before reaching the table.
var palettes = map[paletteKey]string{
	{day: true, group: groupClear}:        "from-blue-400 to-blue-600",
	{day: true, group: groupSnow}:         "from-blue-200 to-blue-400",
	{day: true, group: groupThunderstorm}: "from-gray-600 to-gray-800",
	{day: true, group: groupFog}:          "from-gray-300 to-gray-500",
	{day: true, group: groupDefault}:      "from-blue-300 to-blue-500",

	{day: false, group: groupClear}:        "from-indigo-900 to-purple-900",
	{day: false, group: groupSnow}:         "from-blue-900 to-indigo-900",
	{day: false, group: groupThunderstorm}: "from-gray-900 to-black",
	{day: false, group: groupFog}:          "from-gray-700 to-gray-900",
	{day: false, group: groupDefault}:      "from-indigo-800 to-purple-800",
}

func groupFor(category string) paletteGroup {
	switch category {
	case "clear":
		return groupClear
	case "snow":
		return groupSnow
	case "thunderstorm":
		return groupThunderstorm
	case "mist", "fog":
		return groupFog
	default:
		return groupDefault
	}
}

// lookupBackground returns the gradient class for a normalized category.
func lookupBackground(isDay bool, category string) Background {
	class, ok := palettes[paletteKey{day: isDay, group: groupFor(category)}]
	if !ok {
		class = palettes[paletteKey{day: isDay, group: groupDefault}]
	}
	return Background{Class: class}
}
