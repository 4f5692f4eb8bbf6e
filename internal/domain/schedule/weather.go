package schedule

// WeatherSafetyVerdict is a coarse safety classification for a location and
// time window. Unsafe blocks normal-priority booking but never emergencies.
type WeatherSafetyVerdict int

const (
	WeatherSafe WeatherSafetyVerdict = iota
	WeatherCaution
	WeatherUnsafe
)

func (v WeatherSafetyVerdict) String() string {
	switch v {
	case WeatherSafe:
		return "safe"
	case WeatherCaution:
		return "caution"
	case WeatherUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}
