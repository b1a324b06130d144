// Package recurrence materializes transactions that carry a recurrence
// descriptor.
//
// Each frequency (daily, weekly, monthly, yearly) has its own schedule
// strategy that computes the n-th occurrence after a template's date.
package recurrence

import (
	"fmt"

	"moneybook/internal/core"
)

// Schedule is the strategy interface for one frequency. Occurrence returns
// the n-th repetition of a template dated start; n == 0 is start itself.
type Schedule interface {
	Occurrence(start core.Date, n int) core.Date
}

// DailySchedule repeats every day.
type DailySchedule struct{}

func (DailySchedule) Occurrence(start core.Date, n int) core.Date {
	return start.AddDays(n)
}

// WeeklySchedule repeats every seven days.
type WeeklySchedule struct{}

func (WeeklySchedule) Occurrence(start core.Date, n int) core.Date {
	return start.AddDays(7 * n)
}

// MonthlySchedule repeats on the start day of every month, or on the last
// day of months too short to have it.
type MonthlySchedule struct{}

func (MonthlySchedule) Occurrence(start core.Date, n int) core.Date {
	first := core.NewDate(start.Year(), start.Month()+n, 1)
	return clampDay(first, start.Day())
}

// YearlySchedule repeats on the start month and day, moving Feb 29 to Feb 28
// in common years.
type YearlySchedule struct{}

func (YearlySchedule) Occurrence(start core.Date, n int) core.Date {
	first := core.NewDate(start.Year()+n, start.Month(), 1)
	return clampDay(first, start.Day())
}

// clampDay returns day of first's month, capped at the month's last day.
func clampDay(first core.Date, day int) core.Date {
	last := first.EndOfMonth().Day()
	if day > last {
		day = last
	}
	return core.NewDate(first.Year(), first.Month(), day)
}

var schedules = map[core.RepetitionTypes]Schedule{
	core.Daily:   DailySchedule{},
	core.Weekly:  WeeklySchedule{},
	core.Monthly: MonthlySchedule{},
	core.Yearly:  YearlySchedule{},
}

// GetSchedule returns the schedule for a repetition type.
func GetSchedule(every core.RepetitionTypes) (Schedule, error) {
	s, ok := schedules[every]
	if !ok {
		return nil, fmt.Errorf("%w: unknown repetition type %q", core.ErrInvalidPeriod, string(every))
	}
	return s, nil
}

// RegisterSchedule adds or replaces the schedule of a repetition type.
func RegisterSchedule(every core.RepetitionTypes, s Schedule) {
	schedules[every] = s
}

// Due lists the occurrences of a template dated start that fall after last
// and no later than until (nor after end, when end is set).
func Due(s Schedule, start, last, until, end core.Date) []core.Date {
	if !end.IsZero() && end.Before(until) {
		until = end
	}
	var out []core.Date
	for n := 1; ; n++ {
		d := s.Occurrence(start, n)
		if d.After(until) {
			return out
		}
		if d.After(last) {
			out = append(out, d)
		}
	}
}
