// boardctl joins a board session from the terminal and prints every event
// it receives. It runs the same reconciling client the web board uses, so it
// doubles as a smoke test for a deployment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"sessionboard-backend/internal/auth"
	"sessionboard-backend/internal/client"
	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/logging"
	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		baseURL   string
		token     string
		sessionID string
		password  string
		note      string
		poll      time.Duration
		chatMax   int
		qnaMax    int
		logLevel  string
	)
	defaults := config.LoadClientSync()

	flags := pflag.NewFlagSet("boardctl", pflag.ContinueOnError)
	flags.StringVar(&baseURL, "url", "http://localhost:8080", "board server base URL")
	flags.StringVar(&token, "token", os.Getenv("BOARD_TOKEN"), "access token (default $BOARD_TOKEN)")
	flags.StringVarP(&sessionID, "session", "s", "", "session ID to open")
	flags.StringVarP(&password, "password", "p", "", "password for password-protected sessions")
	flags.StringVar(&note, "note", "", "place a sticky note with this text after joining")
	flags.DurationVar(&poll, "poll", defaults.PollInterval, "reconciliation interval, env SYNC_POLL_INTERVAL")
	flags.IntVar(&chatMax, "chat-window", defaults.ChatWindow, "chat messages kept, env SYNC_CHAT_WINDOW")
	flags.IntVar(&qnaMax, "question-window", defaults.QuestionWindow, "questions kept, env SYNC_QUESTION_WINDOW")
	flags.StringVar(&logLevel, "log-level", "info", "log level")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if sessionID == "" || token == "" {
		flags.Usage()
		return errors.New("--session and --token are required")
	}

	logger := logging.New(config.LogConfig{Level: logLevel, Pretty: true}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewHTTPAPI(baseURL, token)
	board := client.NewBoard(api, sessionID,
		client.WithPollInterval(poll),
		client.WithWindows(chatMax, qnaMax),
		client.WithLogger(logger),
	)

	if err := board.Open(ctx); err != nil {
		if board.State() != client.StateJoinRequired {
			return err
		}
		logger.Info().Str("privacy", string(board.Privacy())).Msg("join required")
		if err := board.Join(ctx, password); err != nil {
			return fmt.Errorf("join %s: %w", sessionID, err)
		}
	}
	if s, ok := board.Session(); ok {
		logger.Info().
			Str("title", s.Title).
			Bool("can_write", board.CanWrite()).
			Int("elements", len(board.Elements())).
			Msg("session opened")
	}

	socket := client.NewSocket(baseURL, token, sessionID, logger)
	enc := json.NewEncoder(os.Stdout)
	socket.OnEvent(func(ev protocol.Event) {
		board.Apply(ev)
		_ = enc.Encode(ev)
	})
	socket.OnReconnect(board.Reconnected)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return socket.Run(gctx) })
	g.Go(func() error { return board.Run(gctx) })

	if note != "" {
		canvas := client.NewCanvas(board, api, socket, identityOf(token), logger)
		if _, err := canvas.Add(gctx, model.CanvasElement{Content: model.Content{Text: note}}); err != nil {
			logger.Warn().Err(err).Msg("could not place note")
		}
		canvas.Wait()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// identityOf reads the caller out of the token without verifying it. The
// server checks the signature on every request.
func identityOf(token string) model.Identity {
	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return model.Identity{}
	}
	return claims.Identity()
}
