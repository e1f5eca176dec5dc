package service

import (
	"testing"

	"voltage-backend/internal/models"
)

func questionSet(correct ...models.OptionLabel) []models.Question {
	questions := make([]models.Question, 0, len(correct))
	for i, label := range correct {
		questions = append(questions, models.Question{ID: uint(i + 1), CorrectAnswer: label, Points: 1})
	}
	return questions
}

func TestGradeSubmission(t *testing.T) {
	questions := questionSet(models.OptionA, models.OptionB, models.OptionC, models.OptionD)

	cases := []struct {
		name       string
		answers    map[uint]string
		passing    int
		correct    int
		percentage float64
		passed     bool
	}{
		{"all correct", map[uint]string{1: "a", 2: "b", 3: "c", 4: "d"}, 60, 4, 100, true},
		{"case and whitespace", map[uint]string{1: " A ", 2: "B"}, 50, 2, 50, true},
		{"boundary fails below", map[uint]string{1: "a", 2: "b"}, 60, 2, 50, false},
		{"unknown labels", map[uint]string{1: "e", 2: "", 3: "cc"}, 0, 0, 0, true},
		{"foreign question ignored", map[uint]string{1: "a", 99: "a"}, 25, 1, 25, true},
		{"nothing answered", nil, 60, 0, 0, false},
	}

	for _, tc := range cases {
		grade := GradeSubmission(questions, tc.answers, tc.passing)
		if grade.CorrectAnswers != tc.correct {
			t.Fatalf("%s: expected %d correct, got %d", tc.name, tc.correct, grade.CorrectAnswers)
		}
		if grade.Percentage != tc.percentage {
			t.Fatalf("%s: expected %.2f%%, got %.2f%%", tc.name, tc.percentage, grade.Percentage)
		}
		if grade.Passed != tc.passed {
			t.Fatalf("%s: expected passed=%v", tc.name, tc.passed)
		}
		if grade.TotalQuestions != 4 || len(grade.Sheet) != 4 {
			t.Fatalf("%s: every question must be graded, got %d records", tc.name, len(grade.Sheet))
		}
	}
}

func TestGradeSubmissionPercentageIsNotRounded(t *testing.T) {
	grade := GradeSubmission(questionSet(models.OptionA, models.OptionA, models.OptionA), map[uint]string{1: "a"}, 33)
	if grade.Percentage != float64(1)/float64(3)*100 {
		t.Fatalf("expected exact percentage, got %v", grade.Percentage)
	}
	if !grade.Passed {
		t.Fatal("33.33% must pass a 33 threshold")
	}
}

func TestGradeSubmissionRecordsAnswers(t *testing.T) {
	grade := GradeSubmission(questionSet(models.OptionB, models.OptionC), map[uint]string{1: "B", 2: "x"}, 50)

	if record := grade.Sheet["1"]; record.Answer != "b" || !record.IsCorrect || record.Correct != models.OptionB {
		t.Fatalf("unexpected record for q1: %+v", record)
	}
	if record := grade.Sheet["2"]; record.Answer != "x" || record.IsCorrect {
		t.Fatalf("invalid answer must be kept verbatim and marked wrong: %+v", record)
	}
	if grade.Score != 1 {
		t.Fatalf("expected score 1, got %d", grade.Score)
	}
}

func TestGradeSubmissionWithoutQuestions(t *testing.T) {
	grade := GradeSubmission(nil, map[uint]string{1: "a"}, 0)
	if grade.Passed || grade.Percentage != 0 {
		t.Fatalf("a quiz without questions must never pass: %+v", grade)
	}
}

func TestBatteryDelta(t *testing.T) {
	if BatteryDelta(true) != 10 || BatteryDelta(false) != -5 {
		t.Fatalf("unexpected battery deltas %d / %d", BatteryDelta(true), BatteryDelta(false))
	}
}
