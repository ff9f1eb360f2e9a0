// Package outfit turns a day's temperature and rainfall into clothing advice.
package outfit

// Advice labels, in rule order.
const (
	Rain     = "rain, bring an umbrella"
	VeryCold = "very cold, heavy jacket"
	Cold     = "cold, light jacket"
	Mild     = "mild, t-shirt and jeans"
	Warm     = "warm, light t-shirt"
	Hot      = "hot, shorts and plenty of water"
)

// RainThreshold is the precipitation (mm) above which rain advice wins
// regardless of temperature.
const RainThreshold = 2.0

// Classify returns the advice for a temperature in °C and precipitation in mm.
// Rules are checked in order; temperature bounds are exclusive upper bounds.
func Classify(temperature, precipitation float64) string {
	switch {
	case precipitation > RainThreshold:
		return Rain
	case temperature < 10:
		return VeryCold
	case temperature < 18:
		return Cold
	case temperature < 26:
		return Mild
	case temperature < 32:
		return Warm
	default:
		return Hot
	}
}
