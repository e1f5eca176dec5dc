package models

type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,eg_phone"`
	ParentPhone string `json:"parent_phone" binding:"omitempty,eg_phone"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	FirstName   string `json:"first_name" binding:"required,max=150,no_html"`
	LastName    string `json:"last_name" binding:"max=150,no_html"`
	Grade       int    `json:"grade" binding:"omitempty,min=1,max=3"`
	Governorate string `json:"governorate" binding:"max=20"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type CreateChapterRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Grade       int    `json:"grade" binding:"required,min=1,max=3"`
	Order       int    `json:"order" binding:"min=0"`
}

type CreateLectureRequest struct {
	ChapterID   uint   `json:"chapter_id" binding:"required"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	VideoURL    string `json:"video_url" binding:"required"`
	Duration    int    `json:"duration" binding:"min=0"`
	PDFFile     string `json:"pdf_file"`
	PriceCents  int64  `json:"price_cents" binding:"min=0"`
	IsFree      bool   `json:"is_free"`
	Order       int    `json:"order" binding:"min=0"`
}

type UpdateProgressRequest struct {
	Progress int `json:"progress"`
}

type CreateQuestionRequest struct {
	Text          string `json:"text" binding:"required"`
	Image         string `json:"image"`
	OptionA       string `json:"option_a" binding:"max=500"`
	OptionB       string `json:"option_b" binding:"max=500"`
	OptionC       string `json:"option_c" binding:"max=500"`
	OptionD       string `json:"option_d" binding:"max=500"`
	CorrectAnswer string `json:"correct_answer" binding:"required,option_label"`
	Explanation   string `json:"explanation"`
	Points        int    `json:"points" binding:"omitempty,min=1"`
	Order         int    `json:"order" binding:"min=0"`
}

type CreateQuizRequest struct {
	LectureID        uint                    `json:"lecture_id" binding:"required"`
	Title            string                  `json:"title" binding:"required,max=200"`
	Description      string                  `json:"description"`
	TimeLimit        int                     `json:"time_limit" binding:"omitempty,min=1"`
	PassingScore     *int                    `json:"passing_score" binding:"omitempty,min=0,max=100"`
	ShuffleQuestions *bool                   `json:"shuffle_questions"`
	ShowAnswers      *bool                   `json:"show_answers"`
	MaxAttempts      int                     `json:"max_attempts" binding:"omitempty,min=1"`
	Questions        []CreateQuestionRequest `json:"questions" binding:"dive"`
}

// SubmitQuizRequest carries the submitted option label per question id.
type SubmitQuizRequest struct {
	Answers map[uint]string `json:"answers"`
}

type CreateOrderRequest struct {
	LectureID uint `json:"lecture_id" binding:"required"`
}

type OrderDecisionRequest struct {
	AdminNotes string `json:"admin_notes" binding:"max=2000"`
}

type RedeemCodeRequest struct {
	Code string `json:"code" binding:"required,max=32"`
}

type GenerateCodesRequest struct {
	LectureID uint `json:"lecture_id" binding:"required"`
	Count     int  `json:"count" binding:"required,min=1,max=500"`
}

type SetWalletRequest struct {
	WalletType   string `json:"wallet_type" binding:"required"`
	WalletNumber string `json:"wallet_number" binding:"required,eg_phone"`
	WalletName   string `json:"wallet_name" binding:"required,max=100"`
}
