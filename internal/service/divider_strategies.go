package service

import "github.com/noah-isme/wfm-timesheet/internal/models"

// nahodkaStrategy moves the shortest shift out of a week without rest and only
// promotes shifts the norm phase demoted itself.
type nahodkaStrategy struct{}

func (nahodkaStrategy) alias() string { return models.DividerAliasNahodka }

func (nahodkaStrategy) restCandidate(candidates []*shift) *shift {
	best := candidates[0]
	for _, s := range candidates[1:] {
		if cmp := s.total().Cmp(best.total()); cmp != 0 {
			if cmp < 0 {
				best = s
			}
			continue
		}
		if !s.start.Equal(best.start) {
			if s.start.After(best.start) {
				best = s
			}
			continue
		}
		if s.dayType.Ordering != best.dayType.Ordering {
			if s.dayType.Ordering < best.dayType.Ordering {
				best = s
			}
			continue
		}
		if s.item.ID > best.item.ID {
			best = s
		}
	}
	return best
}

func (nahodkaStrategy) promotable(s *shift) bool {
	return s.movedBy == PhaseNorm
}

// pobedaStrategy moves the latest shift out of a week without rest and may
// promote anything the rest or norm phases placed in ADDITIONAL.
type pobedaStrategy struct{}

func (pobedaStrategy) alias() string { return models.DividerAliasPobeda }

func (pobedaStrategy) restCandidate(candidates []*shift) *shift {
	best := candidates[0]
	for _, s := range candidates[1:] {
		if !s.start.Equal(best.start) {
			if s.start.After(best.start) {
				best = s
			}
			continue
		}
		if cmp := s.total().Cmp(best.total()); cmp != 0 {
			if cmp < 0 {
				best = s
			}
			continue
		}
		if s.dayType.Ordering < best.dayType.Ordering {
			best = s
		}
	}
	return best
}

func (pobedaStrategy) promotable(s *shift) bool {
	return s.movedBy == PhaseNorm || s.movedBy == PhaseWeeklyRest
}
