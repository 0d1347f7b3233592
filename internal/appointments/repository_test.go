package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestInsertConflictRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)

	start := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WithArgs("org-1", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err = repo.Insert(context.Background(), &Appointment{
		OrgID: "org-1", PatientID: "pat-1", TypeID: "type-1",
		StartsAt: start, EndsAt: end, Status: StatusScheduled,
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertCommitsWhenClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)

	start := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WithArgs("org-1", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "org-1", "pat-1", "type-1", start, end, StatusScheduled, "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	appt, err := repo.Insert(context.Background(), &Appointment{
		OrgID: "org-1", PatientID: "pat-1", TypeID: "type-1",
		StartsAt: start, EndsAt: end, Status: StatusScheduled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.ID == "" {
		t.Error("expected generated id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBusyIntervalsExcludesCanceled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)

	from := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	s1 := from.Add(9 * time.Hour)

	mock.ExpectQuery("SELECT starts_at, ends_at").
		WithArgs("org-1", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"starts_at", "ends_at"}).
			AddRow(s1, s1.Add(30*time.Minute)))

	intervals, err := repo.BusyIntervals(context.Background(), "org-1", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intervals) != 1 || !intervals[0].StartsAt.Equal(s1) {
		t.Fatalf("unexpected intervals: %+v", intervals)
	}
}
