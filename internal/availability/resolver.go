package availability

import (
	"context"
	"fmt"
)

// Resolve returns every offered slot whose time is not in booked, keeping the
// offered order. It never returns nil.
func Resolve(offered []Slot, booked map[string]struct{}) []Slot {
	open := make([]Slot, 0, len(offered))
	for _, slot := range offered {
		if _, taken := booked[slot.Time]; taken {
			continue
		}
		open = append(open, slot)
	}
	return open
}

// BookedTimesLookup reports the times already booked on a date.
type BookedTimesLookup interface {
	BookedTimes(ctx context.Context, date string) (map[string]struct{}, error)
}

// Resolver subtracts stored appointments from a fixed calendar.
type Resolver struct {
	calendar []Slot
	booked   BookedTimesLookup
}

// NewResolver builds a resolver over the offered calendar.
func NewResolver(calendar []Slot, booked BookedTimesLookup) *Resolver {
	if booked == nil {
		panic("availability: booked times lookup required")
	}
	offered := make([]Slot, len(calendar))
	copy(offered, calendar)
	return &Resolver{calendar: offered, booked: booked}
}

// Calendar returns a copy of the offered slots.
func (r *Resolver) Calendar() []Slot {
	out := make([]Slot, len(r.calendar))
	copy(out, r.calendar)
	return out
}

// Open returns the calendar minus booked slots. Booked times are looked up
// once per distinct date and only applied to slots on that date.
func (r *Resolver) Open(ctx context.Context) ([]Slot, error) {
	bookedByDate := make(map[string]map[string]struct{})
	open := make([]Slot, 0, len(r.calendar))
	for _, slot := range r.calendar {
		booked, ok := bookedByDate[slot.Date]
		if !ok {
			var err error
			booked, err = r.booked.BookedTimes(ctx, slot.Date)
			if err != nil {
				return nil, fmt.Errorf("availability: booked times for %s: %w", slot.Date, err)
			}
			bookedByDate[slot.Date] = booked
		}
		open = append(open, Resolve([]Slot{slot}, booked)...)
	}
	return open, nil
}
