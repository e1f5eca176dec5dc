package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"voltage-backend/internal/metrics"
	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
	"voltage-backend/pkg/logger"
	"voltage-backend/pkg/validator"
)

const maxSubmitRetries = 3

// QuizService administers timed quiz attempts and grades submissions.
type QuizService struct {
	store   repository.Store
	clock   AttemptClock
	now     func() time.Time
	shuffle func(questions []models.Question)
}

func NewQuizService(store repository.Store, clock AttemptClock) *QuizService {
	return &QuizService{
		store:   store,
		clock:   clock,
		now:     func() time.Time { return time.Now().UTC() },
		shuffle: shuffleQuestions,
	}
}

func (s *QuizService) ensureStore() error {
	if s == nil || s.store == nil {
		return errors.New("quiz repository is not configured")
	}
	return nil
}

func (s *QuizService) Intro(ctx context.Context, studentID, quizID uint) (*models.QuizIntro, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	quiz, err := loadAccessibleQuiz(repos, studentID, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := repos.Quizzes.ListQuestions(quiz.ID)
	if err != nil {
		return nil, err
	}

	used, err := repos.Results.CountAttempts(studentID, quiz.ID)
	if err != nil {
		return nil, err
	}

	totalPoints := 0
	for _, question := range questions {
		totalPoints += question.Points
	}

	return &models.QuizIntro{
		Quiz:          *quiz,
		QuestionCount: len(questions),
		TotalPoints:   totalPoints,
		AttemptsUsed:  used,
		CanTake:       used < quiz.MaxAttempts,
	}, nil
}

// Start opens a new attempt: it checks access and the attempt cap, records the
// start time in the attempt clock and returns the questions without answers.
func (s *QuizService) Start(ctx context.Context, studentID, quizID uint) (*models.QuizAttempt, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	quiz, err := loadAccessibleQuiz(repos, studentID, quizID)
	if err != nil {
		return nil, err
	}

	used, err := repos.Results.CountAttempts(studentID, quiz.ID)
	if err != nil {
		return nil, err
	}
	if used >= quiz.MaxAttempts {
		return nil, ErrAttemptsExhausted
	}

	questions, err := repos.Quizzes.ListQuestions(quiz.ID)
	if err != nil {
		return nil, err
	}
	if quiz.ShuffleQuestions && s.shuffle != nil {
		s.shuffle(questions)
	}

	startedAt := s.now()
	if s.clock != nil {
		if err := s.clock.Start(ctx, studentID, quiz.ID, startedAt); err != nil {
			logger.Warn("Failed to record quiz attempt start", map[string]interface{}{
				"student_id": studentID,
				"quiz_id":    quiz.ID,
				"error":      err.Error(),
			})
		}
	}

	views := make([]models.QuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, models.NewQuestionView(question))
	}

	return &models.QuizAttempt{
		Quiz:          *quiz,
		AttemptNumber: used + 1,
		Questions:     views,
		StartedAt:     startedAt,
		Deadline:      startedAt.Add(time.Duration(quiz.TimeLimit) * time.Minute),
	}, nil
}

// Submit grades the answers, stores the result under the next attempt number
// and adjusts the student's battery in one transaction.
func (s *QuizService) Submit(ctx context.Context, studentID, quizID uint, req models.SubmitQuizRequest) (*models.StudentResult, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	quiz, err := loadAccessibleQuiz(repos, studentID, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := repos.Quizzes.ListQuestions(quiz.ID)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	startedAt, timeTaken := s.elapsed(ctx, studentID, quiz.ID, completedAt)
	grade := GradeSubmission(questions, req.Answers, quiz.PassingScore)

	var result *models.StudentResult
	for attempt := 1; ; attempt++ {
		result, err = s.persistResult(ctx, studentID, quiz, grade, startedAt, completedAt, timeTaken)
		if err == nil {
			break
		}
		if !repository.IsDuplicateKeyError(err) || attempt >= maxSubmitRetries {
			return nil, err
		}
	}

	if s.clock != nil {
		if err := s.clock.Clear(ctx, studentID, quiz.ID); err != nil {
			logger.Warn("Failed to clear quiz attempt start", map[string]interface{}{
				"student_id": studentID,
				"quiz_id":    quiz.ID,
				"error":      err.Error(),
			})
		}
	}

	metrics.ObserveQuizSubmission(grade.Passed)
	logger.Info("Quiz submitted", map[string]interface{}{
		"student_id":     studentID,
		"quiz_id":        quiz.ID,
		"attempt_number": result.AttemptNumber,
		"percentage":     result.Percentage,
		"passed":         result.Passed,
	})

	quiz.Questions = nil
	result.Quiz = *quiz
	return result, nil
}

func (s *QuizService) persistResult(ctx context.Context, studentID uint, quiz *models.Quiz, grade Grade, startedAt, completedAt time.Time, timeTaken int) (*models.StudentResult, error) {
	var result *models.StudentResult

	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		prior, err := repos.Results.CountAttempts(studentID, quiz.ID)
		if err != nil {
			return err
		}
		if prior >= quiz.MaxAttempts {
			return ErrAttemptsExhausted
		}

		completed := completedAt
		record := &models.StudentResult{
			StudentID:      studentID,
			QuizID:         quiz.ID,
			AttemptNumber:  prior + 1,
			Score:          grade.Score,
			TotalQuestions: grade.TotalQuestions,
			CorrectAnswers: grade.CorrectAnswers,
			Percentage:     grade.Percentage,
			Passed:         grade.Passed,
			TimeTaken:      timeTaken,
			StartedAt:      startedAt,
			CompletedAt:    &completed,
			AnswersData:    datatypes.NewJSONType(grade.Sheet),
		}

		if err := repos.Results.Create(record); err != nil {
			return err
		}

		if _, err := repos.Users.AdjustBattery(studentID, BatteryDelta(grade.Passed)); err != nil {
			return fmt.Errorf("adjust battery: %w", err)
		}

		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// elapsed reads the attempt clock. Missing or unreadable entries yield a zero
// duration and a start time equal to the submission time.
func (s *QuizService) elapsed(ctx context.Context, studentID, quizID uint, completedAt time.Time) (time.Time, int) {
	if s.clock == nil {
		return completedAt, 0
	}

	startedAt, ok, err := s.clock.StartedAt(ctx, studentID, quizID)
	if err != nil {
		logger.Warn("Failed to read quiz attempt start", map[string]interface{}{
			"student_id": studentID,
			"quiz_id":    quizID,
			"error":      err.Error(),
		})
		return completedAt, 0
	}
	if !ok {
		return completedAt, 0
	}

	seconds := int(completedAt.Sub(startedAt) / time.Second)
	if seconds < 0 {
		return completedAt, 0
	}
	return startedAt, seconds
}

// ViewResult returns a stored attempt. The per-question breakdown is only
// included when the quiz allows showing answers.
func (s *QuizService) ViewResult(ctx context.Context, studentID, resultID uint) (*models.QuizResultView, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	repos := s.store.Repositories(ctx)
	result, err := repos.Results.GetForStudent(resultID, studentID)
	if err != nil {
		return nil, notFound(err)
	}

	view := &models.QuizResultView{Result: *result}
	view.Result.Quiz.Questions = nil
	if !result.Quiz.ShowAnswers {
		return view, nil
	}

	questions, err := repos.Quizzes.ListQuestions(result.QuizID)
	if err != nil {
		return nil, err
	}

	sheet := result.Answers()
	view.Answers = make([]models.AnswerReview, 0, len(questions))
	for _, question := range questions {
		record := sheet[strconv.FormatUint(uint64(question.ID), 10)]
		view.Answers = append(view.Answers, models.AnswerReview{
			QuestionID:        question.ID,
			Text:              question.Text,
			Options:           question.Options(),
			StudentAnswer:     record.Answer,
			CorrectAnswer:     question.CorrectAnswer,
			CorrectOptionText: question.CorrectOptionText(),
			IsCorrect:         record.IsCorrect,
			Explanation:       question.Explanation,
		})
	}

	return view, nil
}

func (s *QuizService) ListResults(ctx context.Context, studentID uint) ([]models.StudentResult, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	results, err := s.store.Repositories(ctx).Results.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Quiz.Questions = nil
	}
	return results, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, req models.CreateQuizRequest) (*models.Quiz, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	title := validator.SanitizeString(strings.TrimSpace(req.Title))
	if title == "" {
		return nil, newValidationError("quiz title is required")
	}

	repos := s.store.Repositories(ctx)
	if _, err := repos.Lectures.GetByID(req.LectureID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("lecture %d does not exist", req.LectureID)
		}
		return nil, err
	}

	quiz := &models.Quiz{
		LectureID:        req.LectureID,
		Title:            title,
		Description:      validator.SanitizeString(req.Description),
		TimeLimit:        15,
		PassingScore:     60,
		ShuffleQuestions: true,
		ShowAnswers:      true,
		MaxAttempts:      1,
		IsActive:         true,
	}
	if req.TimeLimit > 0 {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShowAnswers != nil {
		quiz.ShowAnswers = *req.ShowAnswers
	}
	if req.MaxAttempts > 0 {
		quiz.MaxAttempts = req.MaxAttempts
	}

	for i, item := range req.Questions {
		label, ok := models.ParseOptionLabel(item.CorrectAnswer)
		if !ok {
			return nil, newValidationError("question %d: correct answer must be one of a, b, c, d", i+1)
		}
		text := strings.TrimSpace(item.Text)
		if text == "" {
			return nil, newValidationError("question %d: text is required", i+1)
		}

		question := models.Question{
			Text:          text,
			Image:         strings.TrimSpace(item.Image),
			OptionA:       strings.TrimSpace(item.OptionA),
			OptionB:       strings.TrimSpace(item.OptionB),
			OptionC:       strings.TrimSpace(item.OptionC),
			OptionD:       strings.TrimSpace(item.OptionD),
			CorrectAnswer: label,
			Explanation:   strings.TrimSpace(item.Explanation),
			Points:        item.Points,
			Order:         item.Order,
		}
		if question.Points <= 0 {
			question.Points = 1
		}
		if question.OptionText(label) == "" {
			return nil, newValidationError("question %d: correct answer %q has no option text", i+1, label)
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := repos.Quizzes.Create(quiz); err != nil {
		return nil, err
	}

	logger.Info("Quiz created", map[string]interface{}{
		"quiz_id":    quiz.ID,
		"lecture_id": quiz.LectureID,
		"questions":  len(quiz.Questions),
	})

	return quiz, nil
}

// loadAccessibleQuiz resolves an active quiz and checks that the student may
// access its lecture: free lectures are open, paid ones need an enrollment.
func loadAccessibleQuiz(repos repository.Repositories, studentID, quizID uint) (*models.Quiz, error) {
	quiz, err := repos.Quizzes.GetByID(quizID)
	if err != nil {
		return nil, notFound(err)
	}
	if !quiz.IsActive {
		return nil, ErrNotFound
	}

	lecture, err := repos.Lectures.GetByID(quiz.LectureID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := checkLectureAccess(repos, studentID, lecture); err != nil {
		return nil, err
	}

	return quiz, nil
}

func checkLectureAccess(repos repository.Repositories, studentID uint, lecture *models.Lecture) error {
	if lecture.IsFree {
		return nil
	}
	if _, err := repos.Enrollments.Get(studentID, lecture.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccessDenied
		}
		return err
	}
	return nil
}

func shuffleQuestions(questions []models.Question) {
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}
