package services

import (
	"fmt"

	"moneybook/internal/core"
)

// PeriodWindow computes the inclusive date window a budget period covers when
// it starts on ref.
type PeriodWindow interface {
	Window(ref core.Date) core.DateRange
}

// DailyWindow covers the reference day only.
type DailyWindow struct{}

func (DailyWindow) Window(ref core.Date) core.DateRange {
	return core.DateRange{From: ref, To: ref}
}

// WeeklyWindow covers seven days starting on the reference day.
type WeeklyWindow struct{}

func (WeeklyWindow) Window(ref core.Date) core.DateRange {
	return core.DateRange{From: ref, To: ref.AddDays(6)}
}

// MonthlyWindow runs from the reference day to the end of its month.
type MonthlyWindow struct{}

func (MonthlyWindow) Window(ref core.Date) core.DateRange {
	return core.DateRange{From: ref, To: ref.EndOfMonth()}
}

// YearlyWindow runs from the reference day to December 31.
type YearlyWindow struct{}

func (YearlyWindow) Window(ref core.Date) core.DateRange {
	return core.DateRange{From: ref, To: ref.EndOfYear()}
}

var periodWindows = map[core.RepetitionTypes]PeriodWindow{
	core.Daily:   DailyWindow{},
	core.Weekly:  WeeklyWindow{},
	core.Monthly: MonthlyWindow{},
	core.Yearly:  YearlyWindow{},
}

// GetPeriodWindow returns the window strategy for a period type.
func GetPeriodWindow(period core.RepetitionTypes) (PeriodWindow, error) {
	w, ok := periodWindows[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, string(period))
	}
	return w, nil
}

// ComputePeriodWindow returns the window of period starting on ref.
func ComputePeriodWindow(period core.RepetitionTypes, ref core.Date) (core.DateRange, error) {
	if err := ref.Validate(); err != nil {
		return core.DateRange{}, err
	}
	w, err := GetPeriodWindow(period)
	if err != nil {
		return core.DateRange{}, err
	}
	return w.Window(ref), nil
}
