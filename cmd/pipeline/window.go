package main

import (
	"fmt"
	"time"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/providers"
)

const dateLayout = "2006-01-02"

// parseWindow bestimmt das Abruffenster aus --from/--to oder --days.
func parseWindow(from, to string, days int, now time.Time) (providers.Window, error) {
	end := now
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return providers.Window{}, fmt.Errorf("--to: %w", err)
		}
		end = t
	}

	if from != "" {
		start, err := time.Parse(dateLayout, from)
		if err != nil {
			return providers.Window{}, fmt.Errorf("--from: %w", err)
		}
		if start.After(end) {
			return providers.Window{}, fmt.Errorf("--from %s liegt nach --to %s", from, end.Format(dateLayout))
		}
		return providers.Window{Start: start, End: end}, nil
	}

	if days <= 0 {
		return providers.Window{}, fmt.Errorf("--days muss positiv sein")
	}
	return providers.TrailingDays(end, days), nil
}
