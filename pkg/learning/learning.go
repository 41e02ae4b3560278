// Package learning is the data layer the app's screens use. Every read goes
// through the offline fallback under its own cache key with a built-in
// default, so a read never fails. Writes go straight to the API and report
// errors to the caller.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkify/talkify/pkg/api"
	"github.com/talkify/talkify/pkg/cachestore"
	"github.com/talkify/talkify/pkg/content"
	"github.com/talkify/talkify/pkg/fallback"
	"github.com/talkify/talkify/pkg/session"
)

// Service is the data layer behind every screen. It is safe for concurrent
// use once built with New.
type Service struct {
	client   *api.Client
	fetcher  *fallback.Fetcher
	sessions *session.Store
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service at New.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(client *api.Client, fetcher *fallback.Fetcher, sessions *session.Store, opts ...Option) *Service {
	s := &Service{
		client:   client,
		fetcher:  fetcher,
		sessions: sessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Online reports the current connectivity check.
func (s *Service) Online(ctx context.Context) bool {
	return s.fetcher.Online(ctx)
}

// token returns the saved token, or "" when there is none or it has
// expired. Public endpoints work without one.
func (s *Service) token(ctx context.Context) string {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			s.logger.Warn("failed to load session", "error", err)
		}
		return ""
	}
	expired, err := session.Expired(sess.Token, s.now())
	if err != nil {
		// Opaque tokens are passed through and left for the server to judge.
		return sess.Token
	}
	if expired {
		s.logger.Info("saved session has expired")
		return ""
	}
	return sess.Token
}

func (s *Service) requireToken(ctx context.Context) (string, error) {
	token := s.token(ctx)
	if token == "" {
		return "", session.ErrNoSession
	}
	return token, nil
}

// authed wraps an authenticated read so a missing session fails the network
// step and the fallback serves cache or default instead.
func authed[T any](s *Service, call func(ctx context.Context, token string) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		token, err := s.requireToken(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return call(ctx, token)
	}
}

func (s *Service) DailyWord(ctx context.Context) fallback.Result[api.DailyWord] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyDailyWord, func(ctx context.Context) (api.DailyWord, error) {
		return s.client.DailyWord(ctx, s.token(ctx))
	}, content.DailyWord(s.now()))
}

// Words lists words. The cache keeps only the most recent listing,
// whatever its filters were.
func (s *Service) Words(ctx context.Context, q api.WordQuery) fallback.Result[api.WordPage] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyWords, func(ctx context.Context) (api.WordPage, error) {
		return s.client.ListWords(ctx, s.token(ctx), q)
	}, content.Words())
}

func (s *Service) Quizzes(ctx context.Context, q api.QuizQuery) fallback.Result[api.QuizPage] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyQuizData, authed(s, func(ctx context.Context, token string) (api.QuizPage, error) {
		return s.client.ListQuizzes(ctx, token, q)
	}), content.Quizzes())
}

func (s *Service) UserStats(ctx context.Context) fallback.Result[api.UserStats] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyUserProgress, authed(s, s.client.UserStats), content.UserStats())
}

func (s *Service) QuizStats(ctx context.Context) fallback.Result[api.QuizStats] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyQuizStats, authed(s, s.client.QuizStats), content.QuizStats())
}

func (s *Service) Streak(ctx context.Context) fallback.Result[api.Streak] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyStreak, authed(s, s.client.Streak), content.Streak())
}

func (s *Service) Achievements(ctx context.Context) fallback.Result[[]api.Achievement] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyAchievements, authed(s, s.client.Achievements), content.Achievements())
}

func (s *Service) Conversations(ctx context.Context) fallback.Result[[]api.Conversation] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyConversations, authed(s, s.client.Conversations), content.Conversations())
}

// Profile refreshes the signed-in user's profile and keeps the saved
// session in step. Offline it falls back to the cached profile, then to the
// user saved at login.
func (s *Service) Profile(ctx context.Context) fallback.Result[api.User] {
	var saved api.User
	if sess, err := s.sessions.Load(ctx); err == nil {
		saved = sess.User
	}
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyProfile, authed(s, func(ctx context.Context, token string) (api.User, error) {
		user, err := s.client.Me(ctx, token)
		if err != nil {
			return api.User{}, err
		}
		if err := s.sessions.Save(ctx, session.Session{Token: token, User: user}); err != nil {
			s.logger.Warn("failed to save refreshed profile", "error", err)
		}
		return user, nil
	}), saved)
}

func (s *Service) Categories(ctx context.Context) fallback.Result[[]string] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyCategories, s.client.Categories, content.Categories())
}

func (s *Service) Levels(ctx context.Context) fallback.Result[[]string] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyLevels, s.client.Levels, content.Levels())
}

// Word returns one word. The cache keeps only the last word opened.
func (s *Service) Word(ctx context.Context, id int) fallback.Result[api.Word] {
	return fetchScoped(ctx, s, cachestore.KeyWordDetail, id, func(ctx context.Context) (api.Word, error) {
		return s.client.GetWord(ctx, s.token(ctx), id)
	}, content.Word(id))
}

func (s *Service) WordProgress(ctx context.Context, page, perPage int) fallback.Result[api.LearnedWordPage] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyWordProgress, authed(s, func(ctx context.Context, token string) (api.LearnedWordPage, error) {
		return s.client.WordProgress(ctx, token, page, perPage)
	}), content.WordProgress())
}

func (s *Service) DailyProgress(ctx context.Context) fallback.Result[api.DailyProgress] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyDailyProgress, authed(s, s.client.DailyProgress), content.DailyProgress())
}

func (s *Service) Sessions(ctx context.Context, page, perPage int) fallback.Result[api.SessionPage] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeySessions, authed(s, func(ctx context.Context, token string) (api.SessionPage, error) {
		return s.client.Sessions(ctx, token, page, perPage)
	}), content.Sessions())
}

func (s *Service) Quiz(ctx context.Context, id int) fallback.Result[api.Quiz] {
	return fetchScoped(ctx, s, cachestore.KeyQuizDetail, id, authed(s, func(ctx context.Context, token string) (api.Quiz, error) {
		return s.client.GetQuiz(ctx, token, id)
	}), content.Quiz(id))
}

// QuizQuestions returns the questions of quiz id. Offline, the built-in quiz
// with the same id can still be played.
func (s *Service) QuizQuestions(ctx context.Context, id int, examMode bool) fallback.Result[api.QuizQuestionSet] {
	return fetchScoped(ctx, s, cachestore.KeyQuizQuestions, id, authed(s, func(ctx context.Context, token string) (api.QuizQuestionSet, error) {
		return s.client.QuizQuestions(ctx, token, id, examMode)
	}), content.QuizQuestions(id))
}

func (s *Service) QuizHistory(ctx context.Context, page, perPage int) fallback.Result[api.QuizHistoryPage] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyQuizHistory, authed(s, func(ctx context.Context, token string) (api.QuizHistoryPage, error) {
		return s.client.QuizHistory(ctx, token, page, perPage)
	}), content.QuizHistory())
}

func (s *Service) MyAchievements(ctx context.Context) fallback.Result[[]api.UserAchievement] {
	return fallback.Fetch(ctx, s.fetcher, cachestore.KeyMyAchievements, authed(s, s.client.MyAchievements), content.MyAchievements())
}

// Messages returns the messages of one conversation. The cache keeps only
// the last conversation opened.
func (s *Service) Messages(ctx context.Context, conversationID int) fallback.Result[[]api.ChatMessage] {
	return fetchScoped(ctx, s, cachestore.KeyMessages, conversationID, authed(s, func(ctx context.Context, token string) ([]api.ChatMessage, error) {
		return s.client.Messages(ctx, token, conversationID)
	}), content.Messages())
}

// scoped is the cached form of a read that depends on an id, so an entry
// written for one id is never served for another.
type scoped[T any] struct {
	ID   int `json:"id"`
	Data T   `json:"data"`
}

func fetchScoped[T any](ctx context.Context, s *Service, key string, id int, op func(context.Context) (T, error), def T) fallback.Result[T] {
	res := fallback.Fetch(ctx, s.fetcher, key, func(ctx context.Context) (scoped[T], error) {
		data, err := op(ctx)
		return scoped[T]{ID: id, Data: data}, err
	}, scoped[T]{ID: id, Data: def})

	data := res.Data.Data
	if res.Source == fallback.SourceCache && res.Data.ID != id {
		data = def
		res.Source = fallback.SourceDefault
	}
	return fallback.Result[T]{
		Data:          data,
		IsOffline:     res.IsOffline,
		Source:        res.Source,
		CacheStatus:   res.CacheStatus,
		FetchErr:      res.FetchErr,
		CacheWriteErr: res.CacheWriteErr,
	}
}

// Login signs in and saves the session.
func (s *Service) Login(ctx context.Context, email, password string) (api.User, error) {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return api.User{}, err
	}
	if res.AccessToken == "" {
		return api.User{}, errors.New("login response carried no access token")
	}
	if err := s.sessions.Save(ctx, session.Session{Token: res.AccessToken, User: res.User}); err != nil {
		return api.User{}, err
	}
	return res.User, nil
}

func (s *Service) Register(ctx context.Context, reg api.Registration) (api.User, error) {
	return s.client.Register(ctx, reg)
}

// Logout forgets the session and every cached resource. Both steps are
// attempted; their errors are joined.
func (s *Service) Logout(ctx context.Context) error {
	var errs []error
	if err := s.sessions.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if store := s.fetcher.Store(); store != nil {
		if err := store.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset wipes the whole cache namespace, session and tutor quota included.
func (s *Service) Reset(ctx context.Context) error {
	store := s.fetcher.Store()
	if store == nil {
		return nil
	}
	return store.Reset(ctx)
}

// ClearCache drops every cached resource and keeps the session.
func (s *Service) ClearCache(ctx context.Context) error {
	store := s.fetcher.Store()
	if store == nil {
		return nil
	}
	return store.Clear(ctx)
}

// CurrentUser returns the saved profile without touching the network.
func (s *Service) CurrentUser(ctx context.Context) (api.User, error) {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		return api.User{}, err
	}
	return sess.User, nil
}

func (s *Service) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (api.User, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.User{}, err
	}
	user, err := s.client.UpdateProfile(ctx, token, update)
	if err != nil {
		return api.User{}, err
	}
	if err := s.sessions.Save(ctx, session.Session{Token: token, User: user}); err != nil {
		s.logger.Warn("failed to save updated profile", "error", err)
	}
	return user, nil
}

func (s *Service) MarkWordLearned(ctx context.Context, wordID int, learned bool) (api.WordProgress, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.WordProgress{}, err
	}
	return s.client.MarkWordLearned(ctx, token, wordID, learned)
}

func (s *Service) ReviewWord(ctx context.Context, wordID int, correct bool) (api.WordProgress, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.WordProgress{}, err
	}
	return s.client.ReviewWord(ctx, token, wordID, correct)
}

func (s *Service) SubmitQuiz(ctx context.Context, sub api.QuizSubmission) (api.QuizResult, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.QuizResult{}, err
	}
	if sub.TotalQuestions <= 0 || sub.Score < 0 || sub.Score > sub.TotalQuestions {
		return api.QuizResult{}, fmt.Errorf("invalid quiz score %d/%d", sub.Score, sub.TotalQuestions)
	}
	return s.client.SubmitQuiz(ctx, token, sub)
}

func (s *Service) LogActivity(ctx context.Context) (api.Streak, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.Streak{}, err
	}
	return s.client.LogActivity(ctx, token)
}

func (s *Service) CreateConversation(ctx context.Context, title string) (api.Conversation, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.Conversation{}, err
	}
	return s.client.CreateConversation(ctx, token, title)
}

func (s *Service) AddMessage(ctx context.Context, conversationID int, role, text string) (api.ChatMessage, error) {
	token, err := s.requireToken(ctx)
	if err != nil {
		return api.ChatMessage{}, err
	}
	return s.client.AddMessage(ctx, token, conversationID, role, text)
}
