package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

type sessionLogger struct {
	logger *log.Logger
}

func (s *sessionLogger) Log(format string, args ...any) {
	s.logger.Printf(format, args...)
}

func main() {
	_ = godotenv.Load()

	logFile, err := os.OpenFile("skypeweb.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger := &sessionLogger{logger: log.New(io.MultiWriter(os.Stdout, logFile), "", log.LstdFlags)}

	username := os.Getenv("SKYPE_USERNAME")
	password := os.Getenv("SKYPE_PASSWORD")
	if username == "" || password == "" {
		log.Fatal("SKYPE_USERNAME and SKYPE_PASSWORD must be set")
	}

	client, err := NewClient(nil, os.Getenv("SKYPE_PROXY"))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	var solver CaptchaSolver
	if key := GetCaptchaAPIKey(); key != "" {
		solver = &TwoCaptchaImageSolver{APIKey: key}
	} else {
		solver = &ConsoleCaptchaSolver{In: os.Stdin, Out: os.Stdout}
	}

	// Ctrl+C / SIGTERM stops the poll loop; logout runs afterwards.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	skype := NewSkype(client, logger)
	if err := skype.Login(ctx, username, password, solver); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	logger.Log("Signed in as %s (%d contacts)", username, len(skype.Contacts))

	err = skype.OnMessage(ctx, echoHandler(ctx, username))
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Log("Poll loop ended: %v", err)
	}

	logoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := skype.Logout(logoutCtx); err != nil {
		logger.Log("Logout failed: %v", err)
	}
}

// echoHandler replies to every inbound message with its own content.
func echoHandler(ctx context.Context, self string) func([]EventMessage, *Skype) {
	return func(events []EventMessage, s *Skype) {
		for _, event := range events {
			r := event.Resource
			if r == nil || r.Content == "" {
				continue
			}
			if r.IMDisplayName == self || SenderID(r.From) == self {
				continue // message from self
			}
			if _, err := s.SendMessage(ctx, SenderID(r.From), r.Content); err != nil {
				log.Printf("echo reply failed: %v", err)
			}
		}
	}
}
