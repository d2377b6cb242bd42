package sim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"github.com/signalsfoundry/ascent-simulator/model"
)

// Summary condenses a run into the figures an engineer reads first.
type Summary struct {
	Termination Termination `json:"termination" msgpack:"termination"`
	Steps       int         `json:"steps" msgpack:"steps"`
	FlightTime  float64     `json:"flight_time" msgpack:"flight_time"` // s

	Apogee     float64 `json:"apogee" msgpack:"apogee"`           // m above pad
	ApogeeTime float64 `json:"apogee_time" msgpack:"apogee_time"` // s

	MaxVelocity      float64 `json:"max_velocity" msgpack:"max_velocity"`           // m/s
	MaxMach          float64 `json:"max_mach" msgpack:"max_mach"`                   // dimensionless
	MaxDrag          float64 `json:"max_drag" msgpack:"max_drag"`                   // N
	MaxAcceleration  float64 `json:"max_acceleration" msgpack:"max_acceleration"`   // m/s²
	MeanAcceleration float64 `json:"mean_acceleration" msgpack:"mean_acceleration"` // m/s²
	// MedianMach is exact for runs up to machSampleSize steps and taken
	// from an evenly thinned sample beyond that.
	MedianMach float64 `json:"median_mach" msgpack:"median_mach"`

	// ProjectedApogee is the altitude a drag-free coast from the final
	// state would reach. It differs from Apogee when a guard stopped the
	// run while the vehicle was still climbing.
	ProjectedApogee float64 `json:"projected_apogee" msgpack:"projected_apogee"` // m above pad

	Final model.SimulationState `json:"final" msgpack:"final"`
}

// machSampleSize bounds the Mach sample the median is computed from.
const machSampleSize = 4096

// summaryBuilder folds each state into running figures so a run of any
// length summarises in constant memory.
type summaryBuilder struct {
	sum      Summary
	accelSum float64

	// mach keeps every machEvery-th value; when it fills, every other
	// entry is dropped and machEvery doubles.
	mach      stats.Float64Data
	machEvery int
}

func (b *summaryBuilder) Observe(_ context.Context, s model.SimulationState) {
	sum := &b.sum
	if sum.Steps == 0 || s.Altitude > sum.Apogee {
		sum.Apogee = s.Altitude
		sum.ApogeeTime = s.Time
	}
	if sum.Steps == 0 {
		sum.MaxVelocity, sum.MaxMach, sum.MaxDrag, sum.MaxAcceleration = s.Velocity, s.Mach, s.Drag, s.Acceleration
	} else {
		sum.MaxVelocity = math.Max(sum.MaxVelocity, s.Velocity)
		sum.MaxMach = math.Max(sum.MaxMach, s.Mach)
		sum.MaxDrag = math.Max(sum.MaxDrag, s.Drag)
		sum.MaxAcceleration = math.Max(sum.MaxAcceleration, s.Acceleration)
	}
	b.accelSum += s.Acceleration
	sum.Steps++
	sum.Final = s

	if b.machEvery == 0 {
		b.machEvery = 1
	}
	if (sum.Steps-1)%b.machEvery == 0 {
		if len(b.mach) == machSampleSize {
			for i := 0; i < machSampleSize/2; i++ {
				b.mach[i] = b.mach[2*i]
			}
			b.mach = b.mach[:machSampleSize/2]
			b.machEvery *= 2
		}
		if (sum.Steps-1)%b.machEvery == 0 {
			b.mach = append(b.mach, s.Mach)
		}
	}
}

func (b *summaryBuilder) build(term Termination) Summary {
	sum := b.sum
	sum.Termination = term
	sum.FlightTime = sum.Final.Time
	if sum.Steps == 0 {
		return sum
	}
	sum.MeanAcceleration = b.accelSum / float64(sum.Steps)
	if median, err := b.mach.Median(); err == nil {
		sum.MedianMach = median
	}
	return sum
}

// String renders the summary as a short multi-line report.
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Termination: %s after %s steps (%s s)\n",
		s.Termination, humanize.Comma(int64(s.Steps)), humanize.FormatFloat("#,###.##", s.FlightTime))
	fmt.Fprintf(&sb, "Apogee: %s m at %s s\n",
		humanize.FormatFloat("#,###.##", s.Apogee), humanize.FormatFloat("#,###.##", s.ApogeeTime))
	fmt.Fprintf(&sb, "Max velocity: %s m/s (Mach %.2f)\n", humanize.FormatFloat("#,###.##", s.MaxVelocity), s.MaxMach)
	fmt.Fprintf(&sb, "Max drag: %s\n", humanize.SIWithDigits(s.MaxDrag, 2, "N"))
	fmt.Fprintf(&sb, "Acceleration: max %.2f m/s², mean %.2f m/s²", s.MaxAcceleration, s.MeanAcceleration)
	switch s.Termination {
	case TerminationMaxSteps, TerminationMaxTime, TerminationCanceled:
		fmt.Fprintf(&sb, "\nProjected coast apogee: %s m", humanize.FormatFloat("#,###.##", s.ProjectedApogee))
	}
	return sb.String()
}
