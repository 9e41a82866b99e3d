package util

import (
	"time"

	"optiq/internal/domain"
)

// nyLocation is resolved once; falls back to a fixed UTC-5 offset if tzdata
// is unavailable.
var nyLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}()

// TradingCalendar provides market-hours awareness for a specific market.
type TradingCalendar struct {
	market domain.Market
}

// NewTradingCalendar creates a TradingCalendar for the given market.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	return &TradingCalendar{
		market: market,
	}
}

// IsMarketOpen returns whether the market is open at time t. US regular
// session is 9:30-16:00 Eastern on weekdays.
// TODO: account for exchange holidays and half days.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	et := t.In(nyLocation)
	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := et.Hour()*60 + et.Minute()
	open := 9*60 + 30
	close := 16 * 60
	return minutes >= open && minutes < close
}

// NextOpen returns the next market open time at or after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	et := t.In(nyLocation)
	for i := 0; i < 7; i++ {
		day := et.AddDate(0, 0, i)
		open := time.Date(day.Year(), day.Month(), day.Day(), 9, 30, 0, 0, nyLocation)
		switch open.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		if !open.Before(t) {
			return open
		}
	}
	return time.Time{}
}

// NextClose returns the next market close time at or after t.
func (tc *TradingCalendar) NextClose(t time.Time) time.Time {
	et := t.In(nyLocation)
	for i := 0; i < 7; i++ {
		day := et.AddDate(0, 0, i)
		close := time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, nyLocation)
		switch close.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		if !close.Before(t) {
			return close
		}
	}
	return time.Time{}
}
