package availability

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var calendar = []Slot{
	{Day: "Terça-feira", Date: "25/08/2025", Time: "15:30h"},
	{Day: "Sexta-feira", Date: "28/08/2025", Time: "14:00h"},
	{Day: "Terça-feira", Date: "01/09/2025", Time: "16:00h"},
}

type stubLookup struct {
	byDate map[string]map[string]struct{}
	calls  map[string]int
	err    error
}

func (s *stubLookup) BookedTimes(_ context.Context, date string) (map[string]struct{}, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[date]++
	if s.err != nil {
		return nil, s.err
	}
	return s.byDate[date], nil
}

func TestResolve_FiltersBookedTimesInOrder(t *testing.T) {
	open := Resolve(calendar, map[string]struct{}{"14:00h": {}})
	assert.Equal(t, []Slot{calendar[0], calendar[2]}, open)
}

func TestResolve_AllBookedReturnsEmpty(t *testing.T) {
	booked := map[string]struct{}{"15:30h": {}, "14:00h": {}, "16:00h": {}}
	open := Resolve(calendar, booked)
	require.NotNil(t, open)
	assert.Empty(t, open)
}

func TestResolve_EmptyOfferedReturnsEmpty(t *testing.T) {
	open := Resolve(nil, nil)
	require.NotNil(t, open)
	assert.Empty(t, open)
}

func TestResolve_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	times := []string{"09:00h", "10:30h", "14:00h", "15:30h", "16:00h"}
	for i := 0; i < 200; i++ {
		var offered []Slot
		for j := 0; j < rng.Intn(6); j++ {
			offered = append(offered, Slot{Day: "Dia", Date: "01/01/2025", Time: times[rng.Intn(len(times))]})
		}
		booked := map[string]struct{}{}
		for _, tm := range times {
			if rng.Intn(2) == 0 {
				booked[tm] = struct{}{}
			}
		}

		open := Resolve(offered, booked)

		// subset of offered, in offered order, disjoint from booked
		next := 0
		for _, slot := range open {
			_, taken := booked[slot.Time]
			require.False(t, taken, "open slot %v is booked", slot)
			for next < len(offered) && offered[next] != slot {
				next++
			}
			require.Less(t, next, len(offered), "open slot %v not in offered order", slot)
			next++
		}
		// nothing unbooked was dropped
		want := 0
		for _, slot := range offered {
			if _, taken := booked[slot.Time]; !taken {
				want++
			}
		}
		require.Len(t, open, want)
	}
}

func TestResolver_OpenChecksEachSlotAgainstItsOwnDate(t *testing.T) {
	lookup := &stubLookup{byDate: map[string]map[string]struct{}{
		"28/08/2025": {"14:00h": {}},
		// a 15:30h booking on another date must not hide the 25/08 slot
		"01/09/2025": {"15:30h": {}},
	}}
	resolver := NewResolver(calendar, lookup)

	open, err := resolver.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Slot{calendar[0], calendar[2]}, open)
	assert.Equal(t, map[string]int{"25/08/2025": 1, "28/08/2025": 1, "01/09/2025": 1}, lookup.calls)
}

func TestResolver_OpenLooksUpEachDateOnce(t *testing.T) {
	sameDay := []Slot{
		{Day: "Terça-feira", Date: "25/08/2025", Time: "09:00h"},
		{Day: "Terça-feira", Date: "25/08/2025", Time: "15:30h"},
	}
	lookup := &stubLookup{byDate: map[string]map[string]struct{}{"25/08/2025": {"09:00h": {}}}}

	open, err := NewResolver(sameDay, lookup).Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Slot{sameDay[1]}, open)
	assert.Equal(t, 1, lookup.calls["25/08/2025"])
}

func TestResolver_OpenPropagatesLookupError(t *testing.T) {
	lookup := &stubLookup{err: errors.New("db down")}
	_, err := NewResolver(calendar, lookup).Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestFormatList(t *testing.T) {
	got := FormatList(calendar[:2])
	want := "1. Terça-feira, 25/08/2025 às 15:30h\n2. Sexta-feira, 28/08/2025 às 14:00h"
	if got != want {
		t.Fatalf("FormatList() = %q, want %q", got, want)
	}
	if FormatList(nil) != "" {
		t.Fatal("expected empty list for no slots")
	}
}
