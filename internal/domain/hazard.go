package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Weather condition kinds that can impede drone flight.
type HazardKind string

const (
	HazardRain       HazardKind = "rain"
	HazardStorm      HazardKind = "storm"
	HazardFog        HazardKind = "fog"
	HazardWind       HazardKind = "wind"
	HazardTurbulence HazardKind = "turbulence"
)

type HazardSeverity string

const (
	SeverityLow    HazardSeverity = "low"
	SeverityMedium HazardSeverity = "medium"
	SeverityHigh   HazardSeverity = "high"
)

var (
	hazardKinds      = []HazardKind{HazardRain, HazardStorm, HazardFog, HazardWind, HazardTurbulence}
	hazardSeverities = []HazardSeverity{SeverityLow, SeverityMedium, SeverityHigh}
)

// An axis-aligned weather zone centered at (X, Y) that acts as an obstacle
// in the drone's path.
type Hazard struct {
	Kind     HazardKind
	Severity HazardSeverity
	X        float64
	Y        float64
	Width    float64
	Height   float64
}

func (h Hazard) Center() Position { return Position{X: h.X, Y: h.Y} }

// Display name such as "High storm".
func (h Hazard) Name() string {
	sev := string(h.Severity)
	if sev == "" {
		return string(h.Kind)
	}
	return strings.ToUpper(sev[:1]) + sev[1:] + " " + string(h.Kind)
}

// One-line operator summary.
func (h Hazard) Description() string {
	return fmt.Sprintf("A %s intensity %s zone that may affect drone flight", h.Severity, h.Kind)
}

// Distance from p to the hazard center, reduced by the hazard's mean
// half-extent. Sensing compares this against the drone's detection range.
func (h Hazard) AdjustedDistance(p Position) float64 {
	return p.DistanceTo(h.Center()) - (h.Width+h.Height)/4
}

// Radius used when judging whether a route segment passes too close:
// half the summed width and height.
func (h Hazard) ClearanceRadius() float64 { return (h.Width + h.Height) / 2 }

// Generate a hazard of random kind and severity on the segment a->b, at a
// fractional offset in [0.3, 0.7], each dimension drawn uniformly from
// [sizeMin, sizeMax].
func GenerateHazardOnSegment(rng *rand.Rand, a, b Waypoint, sizeMin, sizeMax float64) Hazard {
	ratio := 0.3 + rng.Float64()*0.4
	return Hazard{
		Kind:     hazardKinds[rng.IntN(len(hazardKinds))],
		Severity: hazardSeverities[rng.IntN(len(hazardSeverities))],
		X:        a.X + ratio*(b.X-a.X),
		Y:        a.Y + ratio*(b.Y-a.Y),
		Width:    sizeMin + rng.Float64()*(sizeMax-sizeMin),
		Height:   sizeMin + rng.Float64()*(sizeMax-sizeMin),
	}
}
