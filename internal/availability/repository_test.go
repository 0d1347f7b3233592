package availability

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestReplaceScheduleSwapsAtomically(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)

	windows := []DayWindow{
		{Weekday: 1, OpenMinute: 840, CloseMinute: 1320},
		{Weekday: 2, OpenMinute: 840, CloseMinute: 1080},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM availability_windows").
		WithArgs("org-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO availability_windows").
		WithArgs("org-1", 1, 840, 1320).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO availability_windows").
		WithArgs("org-1", 2, 840, 1080).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.ReplaceSchedule(context.Background(), "org-1", windows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetWindowsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)

	mock.ExpectQuery("SELECT weekday, open_minute, close_minute").
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"weekday", "open_minute", "close_minute"}))

	windows, err := repo.GetWindows(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected empty schedule, got %d windows", len(windows))
	}
}
