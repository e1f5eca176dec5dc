package service

import (
	"strconv"

	"voltage-backend/internal/models"
)

const (
	passBatteryDelta       = 10
	failBatteryDelta       = -5
	completionBatteryDelta = 5
)

// Grade is the outcome of scoring one submission.
type Grade struct {
	Score          int
	TotalQuestions int
	CorrectAnswers int
	Percentage     float64
	Passed         bool
	Sheet          models.AnswerSheet
}

// GradeSubmission scores answers against questions. Unanswered questions and
// unknown labels count as wrong; answers to questions outside the quiz are
// ignored. A quiz without questions grades to 0% and never passes.
func GradeSubmission(questions []models.Question, answers map[uint]string, passingScore int) Grade {
	grade := Grade{
		TotalQuestions: len(questions),
		Sheet:          make(models.AnswerSheet, len(questions)),
	}

	for _, question := range questions {
		raw, answered := answers[question.ID]
		label, valid := models.ParseOptionLabel(raw)
		isCorrect := valid && label == question.CorrectAnswer
		if isCorrect {
			grade.Score += question.Points
			grade.CorrectAnswers++
		}

		stored := ""
		switch {
		case valid:
			stored = string(label)
		case answered:
			stored = raw
		}
		grade.Sheet[strconv.FormatUint(uint64(question.ID), 10)] = models.AnswerRecord{
			Answer:    stored,
			Correct:   question.CorrectAnswer,
			IsCorrect: isCorrect,
		}
	}

	if grade.TotalQuestions == 0 {
		return grade
	}

	grade.Percentage = float64(grade.CorrectAnswers) / float64(grade.TotalQuestions) * 100
	grade.Passed = grade.Percentage >= float64(passingScore)
	return grade
}

// BatteryDelta is the battery adjustment earned by a graded attempt.
func BatteryDelta(passed bool) int {
	if passed {
		return passBatteryDelta
	}
	return failBatteryDelta
}
