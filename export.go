package orbitprop

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
)

const dateFormat = "2006-01-02 15:04:05"

// WriteCSV writes the states as an orbital elements ephemeris.
func WriteCSV[T Float](w io.Writer, states []State[T]) error {
	if len(states) > 0 {
		if _, err := fmt.Fprintf(w, "# Records are a, e, i, Ω, ω, M, ν. All angles are in degrees.\n#   Simulation time start (UTC): %s\n", states[0].DT.UTC().Format(dateFormat)); err != nil {
			return errors.Wrap(err, "csv header")
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "jd", "a", "e", "i", "Omega", "omega", "M", "nu"}); err != nil {
		return errors.Wrap(err, "csv header")
	}
	for _, st := range states {
		a, e, i, Ω, ω, M, ν := st.Orbit.Elements()
		record := []string{
			st.DT.UTC().Format(dateFormat),
			strconv.FormatFloat(julian.TimeToJD(st.DT), 'f', 8, 64),
			strconv.FormatFloat(float64(a), 'f', 6, 64),
			strconv.FormatFloat(float64(e), 'f', 8, 64),
		}
		for _, angle := range []T{i, Ω, ω, M, ν} {
			record = append(record, strconv.FormatFloat(Rad2deg(float64(angle)), 'f', 6, 64))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "csv record at %s", st.DT.UTC())
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "csv")
}
