package orbitprop

import (
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// State is a propagated orbit at a date.
type State[T Float] struct {
	DT    time.Time
	Orbit Orbit[T]
}

// Sample propagates p over [start, end] every step and returns the states,
// end included. The propagator is left at the last sample.
func Sample[T Float](p Propagator[T], start, end time.Time, step time.Duration, logger log.Logger) ([]State[T], error) {
	if step <= 0 {
		return nil, errors.Errorf("sample: step must be positive, got %s", step)
	}
	if end.Before(start) {
		return nil, errors.Errorf("sample: end %s before start %s", end, start)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "subsys", "astro")
	level.Info(logger).Log("status", "started", "start", start.UTC(), "end", end.UTC(), "step", step, "orbit", p.Orbit())
	states := make([]State[T], 0, int(end.Sub(start)/step)+1)
	for dt := start; !dt.After(end); dt = dt.Add(step) {
		o, err := PropagateToTime(p, dt)
		if err != nil {
			level.Error(logger).Log("status", "failed", "date", dt.UTC(), "err", err)
			return states, errors.Wrapf(err, "sample at %s", dt.UTC())
		}
		states = append(states, State[T]{dt, o})
	}
	duration := end.Sub(start)
	durStr := duration.String()
	if duration.Hours() > 24 {
		durStr += fmt.Sprintf(" (~%.3fd)", duration.Hours()/24)
	}
	level.Info(logger).Log("status", "finished", "duration", durStr, "samples", len(states), "orbit", p.Orbit())
	return states, nil
}
