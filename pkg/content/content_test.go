package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDataDecodes(t *testing.T) {
	require.NoError(t, Validate())

	page := Words()
	require.NotEmpty(t, page.Words)
	assert.Equal(t, len(page.Words), page.Pagination.TotalItems)
	for _, w := range page.Words {
		assert.NotEmpty(t, w.Word)
		assert.NotEmpty(t, w.Meaning)
		assert.NotEmpty(t, w.Level)
	}

	quizzes := Quizzes()
	require.NotEmpty(t, quizzes.Quizzes)
	for _, q := range quizzes.Quizzes {
		assert.Len(t, q.Questions, q.QuestionCount)
		for _, question := range q.Questions {
			require.NotNil(t, question.CorrectAnswer)
			assert.Less(t, *question.CorrectAnswer, len(question.Options))
		}
	}
}

func TestDailyWordRotatesByDay(t *testing.T) {
	day := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	first := DailyWord(day)
	sameDay := DailyWord(day.Add(10 * time.Hour))
	nextDay := DailyWord(day.Add(24 * time.Hour))

	assert.Equal(t, "2024-06-01", first.Date)
	assert.Equal(t, first.Word, sameDay.Word)
	assert.NotEqual(t, first.Word, nextDay.Word)
}

func TestDefaultsAreCopies(t *testing.T) {
	page := Words()
	page.Words[0].Word = "mutated"
	assert.NotEqual(t, "mutated", Words().Words[0].Word)

	quizzes := Quizzes()
	quizzes.Quizzes[0].Questions[0].Question = "mutated"
	assert.NotEqual(t, "mutated", Quizzes().Quizzes[0].Questions[0].Question)
}

func TestEmptyDefaultsAreNonNil(t *testing.T) {
	assert.NotNil(t, Achievements())
	assert.NotNil(t, Conversations())
	assert.NotNil(t, Messages())
	assert.NotNil(t, MyAchievements())
	assert.NotNil(t, WordProgress().LearnedWords)
	assert.NotNil(t, Sessions().Sessions)
	assert.NotNil(t, QuizHistory().History)
	assert.Equal(t, 10, DailyProgress().DailyGoal)
	assert.Equal(t, "A1", UserStats().CurrentLevel)
	assert.Zero(t, Streak().StreakCount)
	assert.Zero(t, QuizStats().TotalQuizzes)
}

func TestLookupsByID(t *testing.T) {
	first := Words().Words[0]
	assert.Equal(t, first, Word(first.ID))
	assert.Equal(t, 999, Word(999).ID)
	assert.Empty(t, Word(999).Word)

	set := QuizQuestions(1)
	assert.Equal(t, 1, set.QuizID)
	assert.Equal(t, "Character Basics", set.Title)
	assert.Len(t, set.Questions, 5)

	missing := QuizQuestions(42)
	assert.Equal(t, 42, missing.QuizID)
	assert.NotNil(t, missing.Questions)
	assert.Empty(t, missing.Questions)

	quiz := Quiz(1)
	quiz.Questions[0].Question = "mutated"
	assert.NotEqual(t, "mutated", Quiz(1).Questions[0].Question)
}

func TestCategoriesAndLevels(t *testing.T) {
	categories := Categories()
	assert.Contains(t, categories, "Character")
	assert.IsIncreasing(t, categories)
	assert.Equal(t, []string{"A1", "A2", "B1", "B2", "C1", "C2"}, Levels())
}
