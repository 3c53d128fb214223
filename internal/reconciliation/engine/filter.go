package engine

import (
	"time"

	"github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
)

// FilterWindow resolves the inclusive window of a filter. ok is false for
// FilterAll, which keeps everything.
func FilterWindow(filter domain.DateFilter, loc *time.Location) (window domain.DateRange, ok bool, err error) {
	if loc == nil {
		loc = time.UTC
	}

	switch filter.Type {
	case "", domain.FilterAll:
		return domain.DateRange{}, false, nil

	case domain.FilterDay:
		if filter.Date == nil {
			return domain.DateRange{}, false, domain.ErrInvalidFilter
		}
		start := startOfDay(*filter.Date, loc)
		return domain.DateRange{Start: start, End: endBefore(start.AddDate(0, 0, 1))}, true, nil

	case domain.FilterRange:
		if filter.From == nil || filter.To == nil {
			return domain.DateRange{}, false, domain.ErrInvalidFilter
		}
		start := startOfDay(*filter.From, loc)
		last := startOfDay(*filter.To, loc)
		if last.Before(start) {
			return domain.DateRange{}, false, domain.ErrInvalidFilter
		}
		return domain.DateRange{Start: start, End: endBefore(last.AddDate(0, 0, 1))}, true, nil

	case domain.FilterWeek:
		if filter.Date == nil {
			return domain.DateRange{}, false, domain.ErrInvalidFilter
		}
		day := startOfDay(*filter.Date, loc)
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return domain.DateRange{Start: start, End: endBefore(start.AddDate(0, 0, 7))}, true, nil

	case domain.FilterMonth:
		month, year := filter.Month, filter.Year
		if filter.Date != nil {
			ref := filter.Date.In(loc)
			if month == 0 {
				month = int(ref.Month())
			}
			if year == 0 {
				year = ref.Year()
			}
		}
		rng, err := RangeFor(domain.Period{Month: month, Year: year}, loc)
		if err != nil {
			return domain.DateRange{}, false, domain.ErrInvalidFilter
		}
		return rng, true, nil

	case domain.FilterYear:
		year := filter.Year
		if year == 0 && filter.Date != nil {
			year = filter.Date.In(loc).Year()
		}
		if year <= 0 {
			return domain.DateRange{}, false, domain.ErrInvalidFilter
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return domain.DateRange{Start: start, End: endBefore(start.AddDate(1, 0, 0))}, true, nil
	}

	return domain.DateRange{}, false, domain.ErrInvalidFilter
}

// ApplyDateFilter keeps the items whose effective date is inside the filter
// window. Items without an effective date only survive FilterAll.
func ApplyDateFilter(items []domain.AssignmentItem, filter domain.DateFilter, loc *time.Location) ([]domain.AssignmentItem, error) {
	window, active, err := FilterWindow(filter, loc)
	if err != nil {
		return nil, err
	}
	if !active {
		return items, nil
	}

	kept := make([]domain.AssignmentItem, 0, len(items))
	for _, item := range items {
		at := item.EffectiveDate()
		if at == nil || !window.Contains(*at) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// FilterBuckets narrows unpaid and invoiced. Paid and excluded stay whole.
func FilterBuckets(buckets domain.Buckets, filter domain.DateFilter, loc *time.Location) (domain.Buckets, error) {
	unpaid, err := ApplyDateFilter(buckets.Unpaid, filter, loc)
	if err != nil {
		return domain.Buckets{}, err
	}
	invoiced, err := ApplyDateFilter(buckets.Invoiced, filter, loc)
	if err != nil {
		return domain.Buckets{}, err
	}
	buckets.Unpaid = unpaid
	buckets.Invoiced = invoiced
	return buckets, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endBefore(next time.Time) time.Time {
	return next.Add(-time.Millisecond)
}
