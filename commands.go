package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/talkify/talkify/pkg/api"
	"github.com/talkify/talkify/pkg/cachestore"
	"github.com/talkify/talkify/pkg/fallback"
	"github.com/talkify/talkify/pkg/tutor"
)

const usage = `usage: talkify [flags] <command> [args]

commands:
  daily                   word of the day
  words [level]           word list, optionally filtered by CEFR level
  quizzes [level]         available quizzes
  stats                   learning statistics
  quiz-stats              quiz statistics
  streak                  current streak
  achievements            achievement catalog
  conversations           saved tutor conversations
  messages <id>           messages of one conversation
  questions <quiz-id>     questions of one quiz
  history                 quiz results
  progress                today's progress toward the daily goal
  profile                 the signed-in user's profile
  categories              word categories
  levels                  CEFR levels
  login <email>           sign in; the password is read from stdin
  logout                  sign out and clear cached data
  ask <message>           ask the AI tutor
  online                  run the connectivity check
  cache clear             clear cached data
  cache inspect [key]     show cached entries
  cache reset             wipe everything cached, session included
  serve                   serve the JSON bridge on stdin/stdout
`

var errUsage = errors.New("invalid usage")

// runCommand executes one CLI command. Read commands never fail on network
// or cache errors; they print whatever the fallback served.
func (a *app) runCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "daily":
		return printResult(stdout, stderr, a.svc.DailyWord(ctx))
	case "words":
		return printResult(stdout, stderr, a.svc.Words(ctx, api.WordQuery{Level: optionalArg(rest)}))
	case "quizzes":
		return printResult(stdout, stderr, a.svc.Quizzes(ctx, api.QuizQuery{Level: optionalArg(rest)}))
	case "stats":
		return printResult(stdout, stderr, a.svc.UserStats(ctx))
	case "quiz-stats":
		return printResult(stdout, stderr, a.svc.QuizStats(ctx))
	case "streak":
		return printResult(stdout, stderr, a.svc.Streak(ctx))
	case "achievements":
		return printResult(stdout, stderr, a.svc.Achievements(ctx))
	case "conversations":
		return printResult(stdout, stderr, a.svc.Conversations(ctx))
	case "messages":
		id, err := idArg(cmd, rest)
		if err != nil {
			return err
		}
		return printResult(stdout, stderr, a.svc.Messages(ctx, id))
	case "questions":
		id, err := idArg(cmd, rest)
		if err != nil {
			return err
		}
		return printResult(stdout, stderr, a.svc.QuizQuestions(ctx, id, false))
	case "history":
		return printResult(stdout, stderr, a.svc.QuizHistory(ctx, 0, 0))
	case "progress":
		return printResult(stdout, stderr, a.svc.DailyProgress(ctx))
	case "profile":
		return printResult(stdout, stderr, a.svc.Profile(ctx))
	case "categories":
		return printResult(stdout, stderr, a.svc.Categories(ctx))
	case "levels":
		return printResult(stdout, stderr, a.svc.Levels(ctx))
	case "login":
		return a.login(ctx, rest, stdin, stdout)
	case "logout":
		if err := a.svc.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "signed out")
		return nil
	case "ask":
		return a.ask(ctx, rest, stdout, stderr)
	case "online":
		if a.svc.Online(ctx) {
			fmt.Fprintln(stdout, "online")
		} else {
			fmt.Fprintln(stdout, "offline")
		}
		return nil
	case "cache":
		return a.cache(ctx, rest, stdout)
	case "serve":
		return NewBridge(a.svc, stdin, stdout, a.logger).Run(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func idArg(cmd string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s takes an id", errUsage, cmd)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s takes a positive id, got %q", errUsage, cmd, args[0])
	}
	return id, nil
}

func (a *app) login(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login takes an email", errUsage)
	}
	password, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read password: %w", err)
	}
	user, err := a.svc.Login(ctx, args[0], strings.TrimRight(password, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "signed in as %s\n", user.Username)
	return nil
}

func (a *app) ask(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	message := strings.Join(args, " ")
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: ask takes a message", errUsage)
	}
	reply, err := a.tutor.Ask(ctx, nil, message, tutor.AskOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, reply.Text)
	fmt.Fprintf(stderr, "%d tutor messages left today\n", reply.Remaining)
	return nil
}

func (a *app) cache(ctx context.Context, args []string, stdout io.Writer) error {
	switch optionalArg(args) {
	case "clear":
		if err := a.svc.ClearCache(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "cache cleared")
		return nil
	case "reset":
		if err := a.svc.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "cache reset")
		return nil
	case "inspect":
		keys := cachestore.KnownKeys()
		if len(args) > 1 {
			if !cachestore.IsKnownKey(args[1]) {
				return fmt.Errorf("%w: unknown cache key %q", errUsage, args[1])
			}
			keys = args[1:2]
		}
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSTATUS\tAGE\tSIZE")
		for _, key := range keys {
			entry, status := a.store.Inspect(ctx, key)
			if !status.OK() {
				fmt.Fprintf(w, "%s\t%s\t-\t-\n", key, status)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", key, status, entry.Age.Round(time.Second), entry.Size)
		}
		return w.Flush()
	default:
		return fmt.Errorf("%w: cache takes clear, inspect or reset", errUsage)
	}
}

func printResult[T any](stdout, stderr io.Writer, res fallback.Result[T]) error {
	if res.IsOffline {
		switch res.Source {
		case fallback.SourceCache:
			fmt.Fprintln(stderr, "offline: showing saved data")
		default:
			fmt.Fprintln(stderr, "offline: showing built-in content")
		}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Data); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
