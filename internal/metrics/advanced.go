package metrics

import (
	"sort"

	"github.com/grm/nightwatch/internal/aggregate"
)

// HourBucket rolls captures up by hour since the first capture.
type HourBucket struct {
	Hour     int
	Captures int
	AvgHFR   float64
}

// WindowRating names a sub-session by its average HFR.
type WindowRating struct {
	Filter string
	Start  float64
	AvgHFR float64
}

// AutofocusCadence summarizes how often autofocus ran.
type AutofocusCadence struct {
	Runs        int
	AvgInterval float64 // seconds between completed runs
	PerHour     float64
}

// Advanced holds the optional deep-analysis metrics, computed only when
// the caller asks for them.
type Advanced struct {
	Hourly      []HourBucket
	BestWindow  *WindowRating
	WorstWindow *WindowRating
	Autofocus   *AutofocusCadence
}

func computeAdvanced(r *aggregate.Report) *Advanced {
	adv := &Advanced{}
	adv.Hourly = hourlyBuckets(r)
	adv.BestWindow, adv.WorstWindow = rateWindows(r)
	adv.Autofocus = autofocusCadence(r)
	return adv
}

func hourlyBuckets(r *aggregate.Report) []HourBucket {
	if len(r.Captures) == 0 {
		return nil
	}
	origin := r.Captures[0].AbsTime

	type acc struct {
		count  int
		hfrSum float64
		hfrN   int
	}
	buckets := make(map[int]*acc)
	for _, c := range r.Captures {
		h := int((c.AbsTime - origin) / 3600)
		b := buckets[h]
		if b == nil {
			b = &acc{}
			buckets[h] = b
		}
		b.count++
		if c.HFR != nil {
			b.hfrSum += *c.HFR
			b.hfrN++
		}
	}

	hours := make([]int, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	out := make([]HourBucket, 0, len(hours))
	for _, h := range hours {
		b := buckets[h]
		hb := HourBucket{Hour: h, Captures: b.count}
		if b.hfrN > 0 {
			hb.AvgHFR = b.hfrSum / float64(b.hfrN)
		}
		out = append(out, hb)
	}
	return out
}

// rateWindows finds the sharpest and softest sub-sessions of the night.
func rateWindows(r *aggregate.Report) (best, worst *WindowRating) {
	filters := make([]string, 0, len(r.Filters))
	for f := range r.Filters {
		filters = append(filters, f)
	}
	sort.Strings(filters)

	for _, f := range filters {
		fa := r.Filters[f]
		for _, sub := range fa.SubSessions {
			if sub.HFR.Count == 0 {
				continue
			}
			w := &WindowRating{Filter: fa.Filter, Start: sub.Start, AvgHFR: sub.HFR.Avg}
			if best == nil || w.AvgHFR < best.AvgHFR {
				best = w
			}
			if worst == nil || w.AvgHFR > worst.AvgHFR {
				worst = w
			}
		}
	}
	return best, worst
}

func autofocusCadence(r *aggregate.Report) *AutofocusCadence {
	if r.Autofocus == nil || r.Autofocus.Completed < 1 {
		return nil
	}
	c := &AutofocusCadence{Runs: r.Autofocus.Completed}
	if r.Duration.Hours > 0 {
		c.PerHour = float64(c.Runs) / r.Duration.Hours
		if c.Runs > 1 {
			c.AvgInterval = r.Duration.Hours * 3600 / float64(c.Runs-1)
		}
	}
	return c
}
