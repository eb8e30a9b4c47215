package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
)

func TestDate_AddMonthsClamped(t *testing.T) {
	cases := []struct {
		from   domain.Date
		months int
		want   string
	}{
		{domain.NewDate(2025, time.January, 31), 1, "2025-02-28"},
		{domain.NewDate(2024, time.January, 31), 1, "2024-02-29"},
		{domain.NewDate(2025, time.January, 31), 2, "2025-03-31"},
		{domain.NewDate(2025, time.November, 30), 3, "2026-02-28"},
		{domain.NewDate(2025, time.March, 15), 1, "2025-04-15"},
	}

	for _, tc := range cases {
		got := tc.from.AddMonthsClamped(tc.months).String()
		if got != tc.want {
			t.Errorf("%s + %d months: expected %s, got %s", tc.from, tc.months, tc.want, got)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	d := domain.NewDate(2025, time.April, 30)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-04-30"` {
		t.Errorf("expected \"2025-04-30\", got %s", b)
	}

	var back domain.Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("expected %s, got %s", d, back)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	if _, err := domain.ParseDate("30/04/2025"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}
