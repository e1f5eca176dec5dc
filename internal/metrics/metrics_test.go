package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"voltage-backend/internal/models"
)

func TestJobFamily(t *testing.T) {
	cases := map[string]string{
		"lecture-duration-42": "lecture-duration",
		"expire-stale-orders": "expire-stale-orders",
		"backfill":            "backfill",
		"trailing-":           "trailing-",
	}
	for in, want := range cases {
		if got := JobFamily(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestCountersIncrement(t *testing.T) {
	register()

	before := testutil.ToFloat64(quizSubmissions.WithLabelValues("true"))
	ObserveQuizSubmission(true)
	if got := testutil.ToFloat64(quizSubmissions.WithLabelValues("true")); got != before+1 {
		t.Fatalf("expected passed submissions to grow by one, got %v -> %v", before, got)
	}

	before = testutil.ToFloat64(enrollmentsCreated.WithLabelValues(string(models.EnrollmentSourceCode)))
	ObserveEnrollment(models.EnrollmentSourceCode)
	if got := testutil.ToFloat64(enrollmentsCreated.WithLabelValues(string(models.EnrollmentSourceCode))); got != before+1 {
		t.Fatalf("expected code enrollments to grow by one")
	}

	ObserveJobRun("lecture-duration-9", "success", time.Millisecond)
	if got := testutil.ToFloat64(jobRunsTotal.WithLabelValues("lecture-duration", "success")); got < 1 {
		t.Fatalf("expected job run recorded under its family")
	}
}
