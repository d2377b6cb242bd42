package sim

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidThrustCurve is wrapped by ParseThrustCurve and NewThrustCurve
// errors.
var ErrInvalidThrustCurve = errors.New("invalid thrust curve")

// ThrustProfile supplies the thrust (N) for the step that starts at simulated
// time t (seconds).
type ThrustProfile interface {
	Thrust(t float64) float64
}

// ThrustFunc adapts a plain function to ThrustProfile.
type ThrustFunc func(t float64) float64

// Thrust implements ThrustProfile.
func (f ThrustFunc) Thrust(t float64) float64 { return f(t) }

// ConstantThrust applies the same thrust on every step, like the reference
// placeholder.
type ConstantThrust float64

// Thrust implements ThrustProfile.
func (c ConstantThrust) Thrust(float64) float64 { return float64(c) }

// ThrustPoint is one sample of a thrust curve.
type ThrustPoint struct {
	Time   float64 `json:"t" msgpack:"t"`      // s
	Thrust float64 `json:"thrust" msgpack:"n"` // N
}

// ThrustCurve interpolates linearly between samples. Before the first sample
// and after the last (burnout) the thrust is zero.
type ThrustCurve struct {
	points []ThrustPoint
}

// NewThrustCurve validates and sorts the samples. Times must be distinct and
// non-negative, thrust non-negative.
func NewThrustCurve(points []ThrustPoint) (*ThrustCurve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidThrustCurve)
	}
	pts := append([]ThrustPoint(nil), points...)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Time < pts[j].Time })
	for i, p := range pts {
		if p.Time < 0 {
			return nil, fmt.Errorf("%w: negative time %v", ErrInvalidThrustCurve, p.Time)
		}
		if p.Thrust < 0 {
			return nil, fmt.Errorf("%w: negative thrust %v at t=%v", ErrInvalidThrustCurve, p.Thrust, p.Time)
		}
		if i > 0 && pts[i-1].Time == p.Time {
			return nil, fmt.Errorf("%w: duplicate time %v", ErrInvalidThrustCurve, p.Time)
		}
	}
	return &ThrustCurve{points: pts}, nil
}

// ParseThrustCurve parses "t:N,t:N,..." e.g. "0:1500,2.5:1200,2.6:0".
func ParseThrustCurve(s string) (*ThrustCurve, error) {
	var pts []ThrustPoint
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		ts, ns, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("%w: sample %q is not t:N", ErrInvalidThrustCurve, field)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: time in %q: %v", ErrInvalidThrustCurve, field, err)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(ns), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: thrust in %q: %v", ErrInvalidThrustCurve, field, err)
		}
		pts = append(pts, ThrustPoint{Time: t, Thrust: n})
	}
	return NewThrustCurve(pts)
}

// BurnTime is the time of the last sample.
func (c *ThrustCurve) BurnTime() float64 {
	return c.points[len(c.points)-1].Time
}

// Thrust implements ThrustProfile.
func (c *ThrustCurve) Thrust(t float64) float64 {
	pts := c.points
	if t < pts[0].Time || t > pts[len(pts)-1].Time {
		return 0
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Time >= t })
	if pts[i].Time == t {
		return pts[i].Thrust
	}
	lo, hi := pts[i-1], pts[i]
	frac := (t - lo.Time) / (hi.Time - lo.Time)
	return lo.Thrust + frac*(hi.Thrust-lo.Thrust)
}

// String renders the curve in ParseThrustCurve syntax.
func (c *ThrustCurve) String() string {
	parts := make([]string, len(c.points))
	for i, p := range c.points {
		parts[i] = strconv.FormatFloat(p.Time, 'g', -1, 64) + ":" + strconv.FormatFloat(p.Thrust, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ProfileFor picks the thrust program of a run: the curve when curve is
// non-empty, the constant thrust otherwise.
func ProfileFor(thrust float64, curve string) (ThrustProfile, error) {
	if strings.TrimSpace(curve) == "" {
		return ConstantThrust(thrust), nil
	}
	return ParseThrustCurve(curve)
}
