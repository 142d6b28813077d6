package data

import (
	"fmt"
	"strings"
)

// StadiumWeather is a typical-conditions row for a venue, used when a game
// has no recorded weather.
type StadiumWeather struct {
	Venue         string
	Temperature   float64 // F
	WindSpeed     float64 // mph
	WindDirection string
}

const StadiumWeatherFile = "mlb_stadium_weather.csv"

// LoadStadiumWeather reads mlb_stadium_weather.csv. Metric columns
// (temperature_c, wind_speed_kmh) are converted to F and mph.
func LoadStadiumWeather(path string) (map[string]StadiumWeather, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stadium weather: %w", err)
	}
	out := make(map[string]StadiumWeather, len(t.rows))
	for _, row := range t.rows {
		venue := t.get(row, "venue", "venue_name")
		if venue == "" {
			continue
		}
		w := StadiumWeather{
			Venue:         venue,
			WindDirection: t.get(row, "wind_direction", "wind_direction_cardinal"),
		}
		if v := t.get(row, "temperature_f", "temperature"); v != "" {
			w.Temperature, _ = parseFloat(v)
		} else if v := t.get(row, "temperature_c"); v != "" {
			c, _ := parseFloat(v)
			w.Temperature = c*9/5 + 32
		}
		if v := t.get(row, "wind_speed_mph", "wind_speed"); v != "" {
			w.WindSpeed, _ = parseFloat(v)
		} else if v := t.get(row, "wind_speed_kmh"); v != "" {
			kmh, _ := parseFloat(v)
			w.WindSpeed = kmh * 0.621371
		}
		out[venueKey(venue)] = w
	}
	return out, nil
}

func venueKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
