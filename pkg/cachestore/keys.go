package cachestore

// Enumerated cache keys. Each names one kind of cached resource; a new
// fetch of the same kind overwrites the previous snapshot regardless of the
// query that produced it.
const (
	KeyDailyWord     = "@talkify_daily_word"
	KeyWords         = "@talkify_words"
	KeyQuizData      = "@talkify_quiz_data"
	KeyUserProgress  = "@talkify_user_progress"
	KeyQuizStats     = "@talkify_quiz_stats"
	KeyStreak        = "@talkify_streak"
	KeyAchievements  = "@talkify_achievements"
	KeyConversations = "@talkify_conversations"

	KeyProfile        = "@talkify_profile"
	KeyCategories     = "@talkify_categories"
	KeyLevels         = "@talkify_levels"
	KeyWordDetail     = "@talkify_word_detail"
	KeyWordProgress   = "@talkify_word_progress"
	KeyDailyProgress  = "@talkify_daily_progress"
	KeySessions       = "@talkify_sessions"
	KeyQuizDetail     = "@talkify_quiz_detail"
	KeyQuizQuestions  = "@talkify_quiz_questions"
	KeyQuizHistory    = "@talkify_quiz_history"
	KeyMyAchievements = "@talkify_my_achievements"
	KeyMessages       = "@talkify_messages"
)

var knownKeys = []string{
	KeyDailyWord,
	KeyWords,
	KeyQuizData,
	KeyUserProgress,
	KeyQuizStats,
	KeyStreak,
	KeyAchievements,
	KeyConversations,
	KeyProfile,
	KeyCategories,
	KeyLevels,
	KeyWordDetail,
	KeyWordProgress,
	KeyDailyProgress,
	KeySessions,
	KeyQuizDetail,
	KeyQuizQuestions,
	KeyQuizHistory,
	KeyMyAchievements,
	KeyMessages,
}

// KnownKeys returns a copy of the enumerated key set.
func KnownKeys() []string {
	out := make([]string, len(knownKeys))
	copy(out, knownKeys)
	return out
}

// IsKnownKey reports whether key belongs to the enumerated set.
func IsKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}
