// Package suncalc computes sun event times and the seasonal day-length
// profile of a site.
package suncalc

import (
	"math"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
	"github.com/tphakala/roofsolar/internal/errors"
)

// SunEventTimes holds the sun event times of one date in UTC
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// cacheEntry holds the cached sun event times for a given date
type cacheEntry struct {
	times SunEventTimes
	date  time.Time
}

// SunCalc handles caching and calculation of sun event times
type SunCalc struct {
	cache    map[string]cacheEntry // keyed by calendar date
	lock     sync.RWMutex
	observer astral.Observer
}

// NewSunCalc creates a new SunCalc instance
func NewSunCalc(latitude, longitude float64) *SunCalc {
	return &SunCalc{
		cache:    make(map[string]cacheEntry),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
	}
}

// GetSunEventTimes returns the sun event times for a given date, using cache if available.
// It fails on dates where the sun does not cross the horizon.
func (sc *SunCalc) GetSunEventTimes(date time.Time) (SunEventTimes, error) {
	dateKey := date.Format(time.DateOnly)

	sc.lock.RLock()
	entry, exists := sc.cache[dateKey]
	sc.lock.RUnlock()

	if exists && entry.date.Equal(date) {
		return entry.times, nil
	}

	times, err := sc.calculateSunEventTimes(date)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.lock.Lock()
	sc.cache[dateKey] = cacheEntry{times: times, date: date}
	sc.lock.Unlock()

	return times, nil
}

// calculateSunEventTimes calculates the sun event times for a given date
func (sc *SunCalc) calculateSunEventTimes(date time.Time) (SunEventTimes, error) {
	sunrise, err := astral.Sunrise(sc.observer, date)
	if err != nil {
		return SunEventTimes{}, sc.eventError(err, "sunrise", date)
	}
	sunset, err := astral.Sunset(sc.observer, date)
	if err != nil {
		return SunEventTimes{}, sc.eventError(err, "sunset", date)
	}

	// Twilight is missing on white nights even when the sun rises and sets
	civilDawn, _ := astral.Dawn(sc.observer, date, astral.DepressionCivil)
	civilDusk, _ := astral.Dusk(sc.observer, date, astral.DepressionCivil)

	return SunEventTimes{
		CivilDawn: civilDawn.UTC(),
		Sunrise:   sunrise.UTC(),
		Sunset:    sunset.UTC(),
		CivilDusk: civilDusk.UTC(),
	}, nil
}

func (sc *SunCalc) eventError(err error, event string, date time.Time) error {
	return errors.New(err).
		Component("suncalc").
		Category(errors.CategoryProcessing).
		Context("event", event).
		Context("date", date.Format(time.DateOnly)).
		Context("latitude", sc.observer.Latitude).
		Build()
}

// GetSunriseTime returns the sunrise time for a given date
func (sc *SunCalc) GetSunriseTime(date time.Time) (time.Time, error) {
	times, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, err
	}
	return times.Sunrise, nil
}

// GetSunsetTime returns the sunset time for a given date
func (sc *SunCalc) GetSunsetTime(date time.Time) (time.Time, error) {
	times, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, err
	}
	return times.Sunset, nil
}

// Polar conditions of a profile day.
const (
	PolarNone        = ""
	PolarMidnightSun = "midnight_sun"
	PolarNight       = "polar_night"
)

// ProfileDay is the daylight of one reference date.
type ProfileDay struct {
	Label     string        `json:"label"`
	Date      time.Time     `json:"date"`
	Sunrise   time.Time     `json:"sunrise,omitzero"`
	Sunset    time.Time     `json:"sunset,omitzero"`
	DayLength time.Duration `json:"day_length_ns"`
	Polar     string        `json:"polar,omitempty"`
}

// referenceDays are the nominal equinox and solstice dates.
var referenceDays = []struct {
	label string
	month time.Month
	day   int
}{
	{"March equinox", time.March, 20},
	{"June solstice", time.June, 21},
	{"September equinox", time.September, 22},
	{"December solstice", time.December, 21},
}

// Profile returns the day length at the equinoxes and solstices of year.
// Days without sunrise or sunset are reported as 24 hours of midnight sun
// or zero hours of polar night.
func (sc *SunCalc) Profile(year int) []ProfileDay {
	out := make([]ProfileDay, 0, len(referenceDays))
	for _, ref := range referenceDays {
		date := time.Date(year, ref.month, ref.day, 12, 0, 0, 0, time.UTC)
		day := ProfileDay{Label: ref.label, Date: date}

		times, err := sc.GetSunEventTimes(date)
		switch {
		case err == nil:
			day.Sunrise = times.Sunrise
			day.Sunset = times.Sunset
			day.DayLength = times.Sunset.Sub(times.Sunrise)
			// Far from Greenwich the UTC sunset can precede the UTC sunrise
			if day.DayLength < 0 {
				day.DayLength += 24 * time.Hour
			}
			day.DayLength = min(day.DayLength, 24*time.Hour)
		case sunAboveHorizonAllDay(sc.observer.Latitude, date):
			day.Polar = PolarMidnightSun
			day.DayLength = 24 * time.Hour
		default:
			day.Polar = PolarNight
		}
		out = append(out, day)
	}
	return out
}

// sunAboveHorizonAllDay reports whether latitude sits in the hemisphere the
// sun's declination favours on date.
func sunAboveHorizonAllDay(latitude float64, date time.Time) bool {
	decl := 23.44 * math.Sin(2*math.Pi*float64(284+date.YearDay())/365)
	return latitude*decl > 0
}
