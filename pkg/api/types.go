package api

type User struct {
	ID            int    `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	LanguageLevel string `json:"language_level,omitempty"`
	DailyGoal     int    `json:"daily_goal,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	StreakCount   int    `json:"streak_count,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

type Word struct {
	ID                 int    `json:"id"`
	Word               string `json:"word"`
	Meaning            string `json:"meaning"`
	Category           string `json:"category,omitempty"`
	Level              string `json:"level"`
	ExampleSentence    string `json:"example_sentence,omitempty"`
	ExampleTranslation string `json:"example_translation,omitempty"`
	Pronunciation      string `json:"pronunciation,omitempty"`
}

type WordPage struct {
	Words      []Word     `json:"words"`
	Pagination Pagination `json:"pagination"`
}

type DailyWord struct {
	Word Word   `json:"word"`
	Date string `json:"date,omitempty"`
}

type WordProgress struct {
	ID           int    `json:"id"`
	WordID       int    `json:"word_id"`
	Learned      bool   `json:"learned"`
	ReviewCount  int    `json:"review_count"`
	CorrectCount int    `json:"correct_count"`
	LastReviewed string `json:"last_reviewed,omitempty"`
}

type LearnedWord struct {
	Word     Word         `json:"word"`
	Progress WordProgress `json:"progress"`
}

type LearnedWordPage struct {
	LearnedWords []LearnedWord `json:"learned_words"`
	Pagination   Pagination    `json:"pagination"`
}

type UserStats struct {
	LearnedWords             int     `json:"learned_words"`
	TotalReviewed            int     `json:"total_reviewed"`
	TotalQuizzes             int     `json:"total_quizzes"`
	AverageQuizScore         float64 `json:"average_quiz_score"`
	TotalSessions            int     `json:"total_sessions"`
	TotalLearningTimeMinutes float64 `json:"total_learning_time_minutes"`
	CurrentLevel             string  `json:"current_level"`
	DailyGoal                int     `json:"daily_goal"`
}

type DailyProgress struct {
	LearnedWords     int     `json:"learned_words"`
	QuizzesCompleted int     `json:"quizzes_completed"`
	DailyGoal        int     `json:"daily_goal"`
	GoalProgress     float64 `json:"goal_progress"`
}

// Session types accepted by StartSession.
const (
	SessionFlashcard  = "flashcard"
	SessionQuiz       = "quiz"
	SessionGrammar    = "grammar"
	SessionVocabulary = "vocabulary"
)

type Session struct {
	ID              int    `json:"id"`
	SessionType     string `json:"session_type"`
	Score           *int   `json:"score,omitempty"`
	TotalItems      *int   `json:"total_items,omitempty"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	StartedAt       string `json:"started_at,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

// SessionUpdate carries only the fields to change.
type SessionUpdate struct {
	Score           *int `json:"score,omitempty"`
	TotalItems      *int `json:"total_items,omitempty"`
	DurationSeconds *int `json:"duration_seconds,omitempty"`
	Completed       bool `json:"completed,omitempty"`
}

type SessionPage struct {
	Sessions   []Session  `json:"sessions"`
	Pagination Pagination `json:"pagination"`
}

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Quiz struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Level         string         `json:"level"`
	Category      string         `json:"category,omitempty"`
	QuestionCount int            `json:"question_count"`
	Questions     []QuizQuestion `json:"questions,omitempty"`
}

type QuizPage struct {
	Quizzes    []Quiz     `json:"quizzes"`
	Pagination Pagination `json:"pagination"`
}

type QuizQuestionSet struct {
	QuizID    int            `json:"quiz_id"`
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizSubmission struct {
	QuizID         *int   `json:"quiz_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	TestType       string `json:"test_type"`
}

type QuizResult struct {
	ID             int     `json:"id"`
	QuizID         *int    `json:"quiz_id,omitempty"`
	TestType       string  `json:"test_type"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	Percentage     float64 `json:"percentage"`
	CompletedAt    string  `json:"completed_at"`
}

type QuizHistoryPage struct {
	History    []QuizResult `json:"history"`
	Pagination Pagination   `json:"pagination"`
}

type QuizStats struct {
	TotalQuizzes           int     `json:"total_quizzes"`
	AverageScore           float64 `json:"average_score"`
	BestScore              float64 `json:"best_score"`
	TotalQuestionsAnswered int     `json:"total_questions_answered"`
	TotalCorrect           int     `json:"total_correct,omitempty"`
}

type Conversation struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	MessageCount int    `json:"message_count"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        int    `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type Achievement struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url,omitempty"`
}

type UserAchievement struct {
	ID          int         `json:"id"`
	Achievement Achievement `json:"achievement"`
	EarnedAt    string      `json:"earned_at"`
}

type Streak struct {
	StreakCount      int     `json:"streak_count"`
	LastActivityDate *string `json:"last_activity_date"`
}
