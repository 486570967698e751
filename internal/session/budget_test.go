package session

import "testing"

func TestBudgetStatusThresholds(t *testing.T) {
	cases := []struct {
		used, ceiling int
		want          BudgetStatus
	}{
		{used: 0, ceiling: 100, want: BudgetHealthy},
		{used: 69, ceiling: 100, want: BudgetHealthy},
		{used: 70, ceiling: 100, want: BudgetWarning},
		{used: 89, ceiling: 100, want: BudgetWarning},
		{used: 90, ceiling: 100, want: BudgetCritical},
		{used: 100, ceiling: 100, want: BudgetExceeded},
		{used: 150, ceiling: 100, want: BudgetExceeded},
	}
	for _, c := range cases {
		b := Budget{Ceiling: c.ceiling, Used: c.used}
		if got := b.Status(); got != c.want {
			t.Errorf("Budget{Used:%d,Ceiling:%d}.Status() = %s, want %s", c.used, c.ceiling, got, c.want)
		}
	}
}

func TestBudgetStatusHealthyWithNoCeiling(t *testing.T) {
	b := Budget{Used: 500}
	if got := b.Status(); got != BudgetHealthy {
		t.Errorf("expected healthy with unset ceiling, got %s", got)
	}
}

func TestBudgetRemainingFloorsAtZero(t *testing.T) {
	b := Budget{Ceiling: 100, Used: 150}
	if got := b.Remaining(); got != 0 {
		t.Errorf("expected remaining floored at 0, got %d", got)
	}
}

func TestBudgetRecordUpdatesUsedAndReturnsStatus(t *testing.T) {
	b := &Budget{Ceiling: 100}
	status := b.Record(95)
	if b.Used != 95 {
		t.Errorf("expected used to accumulate to 95, got %d", b.Used)
	}
	if status != BudgetCritical {
		t.Errorf("expected critical status after recording 95/100, got %s", status)
	}
}
