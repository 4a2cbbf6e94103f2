package habitday

import (
	"testing"
	"time"
)

var jst = time.FixedZone("UTC+9", 9*60*60)

func TestDay_Boundary(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"just before 04:00 belongs to previous day", time.Date(2024, 6, 1, 3, 59, 59, 0, jst), "2024-05-31"},
		{"exactly 04:00 starts the new day", time.Date(2024, 6, 1, 4, 0, 0, 0, jst), "2024-06-01"},
		{"midnight belongs to previous day", time.Date(2024, 6, 1, 0, 0, 0, 0, jst), "2024-05-31"},
		{"midday is the same day", time.Date(2024, 6, 1, 12, 0, 0, 0, jst), "2024-06-01"},
		{"year boundary", time.Date(2025, 1, 1, 2, 0, 0, 0, jst), "2024-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Day(tt.at); got != tt.want {
				t.Errorf("Day(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}

func TestDay_ConvertsToReferenceZone(t *testing.T) {
	// 19:00 UTC is 04:00 next day in the reference zone
	at := time.Date(2024, 5, 31, 19, 0, 0, 0, time.UTC)
	if got := Day(at); got != "2024-06-01" {
		t.Errorf("Day(%v) = %q, want 2024-06-01", at, got)
	}
	// one second earlier still belongs to 2024-05-31
	at = at.Add(-time.Second)
	if got := Day(at); got != "2024-05-31" {
		t.Errorf("Day(%v) = %q, want 2024-05-31", at, got)
	}
}

func TestIsFutureDayAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, jst) // habit day 2024-06-01
	if IsFutureDayAt("2024-06-01", now) {
		t.Error("today is not a future day")
	}
	if !IsFutureDayAt("2024-06-02", now) {
		t.Error("tomorrow is a future day")
	}
	if IsFutureDayAt("2024-05-31", now) {
		t.Error("yesterday is not a future day")
	}

	// before 04:00 the habit day is still yesterday, so "today" by the
	// calendar is a future day
	early := time.Date(2024, 6, 1, 2, 0, 0, 0, jst)
	if !IsFutureDayAt("2024-06-01", early) {
		t.Error("calendar today is future while the habit day is still yesterday")
	}
}

func TestYearDates(t *testing.T) {
	leap := YearDates(2024)
	if len(leap) != 366 {
		t.Fatalf("2024 has %d dates, want 366", len(leap))
	}
	if leap[0] != "2024-01-01" || leap[len(leap)-1] != "2024-12-31" {
		t.Errorf("range = %s..%s, want 2024-01-01..2024-12-31", leap[0], leap[len(leap)-1])
	}

	normal := YearDates(2023)
	if len(normal) != 365 {
		t.Fatalf("2023 has %d dates, want 365", len(normal))
	}
	for i := 1; i < len(normal); i++ {
		if normal[i-1] >= normal[i] {
			t.Fatalf("dates not ascending at %d: %s >= %s", i, normal[i-1], normal[i])
		}
	}
}

func TestRuleActive_Daily(t *testing.T) {
	if !RuleActive("daily", 0, nil, "2024-03-04") {
		t.Error("daily rule should be active every day")
	}
}

func TestRuleActive_Weekdays(t *testing.T) {
	// Mon|Wed|Fri with Sunday as bit 0
	mask := 1<<1 | 1<<3 | 1<<5

	if !RuleActive("weekdays", mask, nil, "2024-03-04") { // Monday
		t.Error("Monday should be active")
	}
	if RuleActive("weekdays", mask, nil, "2024-03-05") { // Tuesday
		t.Error("Tuesday should be inactive")
	}
	if !RuleActive("weekdays", mask, nil, "2024-03-06") { // Wednesday
		t.Error("Wednesday should be active")
	}
	if RuleActive("weekdays", 1<<0, nil, "2024-03-04") { // Sunday-only mask, Monday
		t.Error("Monday should be inactive for a Sunday-only mask")
	}
	if !RuleActive("weekdays", 1<<0, nil, "2024-03-03") { // Sunday
		t.Error("Sunday should be active for a Sunday-only mask")
	}
}

func TestRuleActive_Monthdays(t *testing.T) {
	days := []int{1, 15, 28}
	if !RuleActive("monthdays", 0, days, "2024-03-15") {
		t.Error("the 15th should be active")
	}
	if RuleActive("monthdays", 0, days, "2024-03-16") {
		t.Error("the 16th should be inactive")
	}
}

func TestRuleActive_FailsClosed(t *testing.T) {
	if RuleActive("monthdays", 0, nil, "2024-03-15") {
		t.Error("empty monthdays set should be inactive")
	}
	if RuleActive("weekdays", 0, nil, "2024-03-04") {
		t.Error("zero weekday mask should be inactive")
	}
	if RuleActive("someday", 0, nil, "2024-03-04") {
		t.Error("unknown rule type should be inactive")
	}
	if RuleActive("weekdays", 127, nil, "not-a-date") {
		t.Error("unparseable day should be inactive")
	}
}
