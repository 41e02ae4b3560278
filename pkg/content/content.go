// Package content ships the small datasets served when neither the network
// nor the cache can answer.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/talkify/talkify/pkg/api"
)

//go:embed data/*.json
var dataFS embed.FS

var (
	loadOnce sync.Once
	words    []api.Word
	quizzes  []api.Quiz
	loadErr  error
)

func load() {
	loadOnce.Do(func() {
		if err := decode("data/words.json", &words); err != nil {
			loadErr = err
			return
		}
		loadErr = decode("data/quizzes.json", &quizzes)
	})
}

func decode(name string, v any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Validate reports whether the embedded datasets decode.
func Validate() error {
	load()
	return loadErr
}

// Words returns the built-in flashcards as a single page.
func Words() api.WordPage {
	load()
	out := make([]api.Word, len(words))
	copy(out, words)
	return api.WordPage{
		Words: out,
		Pagination: api.Pagination{
			Page:       1,
			PerPage:    len(out),
			TotalPages: 1,
			TotalItems: len(out),
		},
	}
}

// DailyWord picks a built-in word by day so the offline default still
// changes from one day to the next.
func DailyWord(now time.Time) api.DailyWord {
	load()
	if len(words) == 0 {
		return api.DailyWord{}
	}
	day := now.UTC().Unix() / int64(24*time.Hour/time.Second)
	return api.DailyWord{
		Word: words[int(day%int64(len(words)))],
		Date: now.UTC().Format(time.DateOnly),
	}
}

// Quizzes returns the built-in quizzes, questions included.
func Quizzes() api.QuizPage {
	load()
	out := make([]api.Quiz, len(quizzes))
	for i, q := range quizzes {
		q.Questions = append([]api.QuizQuestion(nil), q.Questions...)
		out[i] = q
	}
	return api.QuizPage{
		Quizzes: out,
		Pagination: api.Pagination{
			Page:       1,
			PerPage:    len(out),
			TotalPages: 1,
			TotalItems: len(out),
		},
	}
}

// Word returns the built-in word with id, or a bare placeholder.
func Word(id int) api.Word {
	load()
	for _, w := range words {
		if w.ID == id {
			return w
		}
	}
	return api.Word{ID: id}
}

// Categories lists the categories of the built-in words, sorted.
func Categories() []string {
	load()
	out := []string{}
	for _, w := range words {
		if w.Category != "" && !slices.Contains(out, w.Category) {
			out = append(out, w.Category)
		}
	}
	slices.Sort(out)
	return out
}

// Levels lists the CEFR levels words and quizzes are graded by.
func Levels() []string {
	return []string{"A1", "A2", "B1", "B2", "C1", "C2"}
}

// Quiz returns the built-in quiz with id, or a placeholder without
// questions.
func Quiz(id int) api.Quiz {
	load()
	for _, q := range quizzes {
		if q.ID == id {
			q.Questions = append([]api.QuizQuestion(nil), q.Questions...)
			return q
		}
	}
	return api.Quiz{ID: id, Questions: []api.QuizQuestion{}}
}

// QuizQuestions returns the question set of the built-in quiz with id.
// Answers are kept so a practice round can be scored offline.
func QuizQuestions(id int) api.QuizQuestionSet {
	q := Quiz(id)
	questions := q.Questions
	if questions == nil {
		questions = []api.QuizQuestion{}
	}
	return api.QuizQuestionSet{QuizID: id, Title: q.Title, Questions: questions}
}

// UserStats is the empty-progress default.
func UserStats() api.UserStats {
	return api.UserStats{CurrentLevel: "A1", DailyGoal: 10}
}

func QuizStats() api.QuizStats {
	return api.QuizStats{}
}

func Streak() api.Streak {
	return api.Streak{}
}

func Achievements() []api.Achievement {
	return []api.Achievement{}
}

func Conversations() []api.Conversation {
	return []api.Conversation{}
}

func Messages() []api.ChatMessage {
	return []api.ChatMessage{}
}

func DailyProgress() api.DailyProgress {
	return api.DailyProgress{DailyGoal: UserStats().DailyGoal}
}

func WordProgress() api.LearnedWordPage {
	return api.LearnedWordPage{LearnedWords: []api.LearnedWord{}, Pagination: emptyPage()}
}

func Sessions() api.SessionPage {
	return api.SessionPage{Sessions: []api.Session{}, Pagination: emptyPage()}
}

func QuizHistory() api.QuizHistoryPage {
	return api.QuizHistoryPage{History: []api.QuizResult{}, Pagination: emptyPage()}
}

func MyAchievements() []api.UserAchievement {
	return []api.UserAchievement{}
}

func emptyPage() api.Pagination {
	return api.Pagination{Page: 1}
}
