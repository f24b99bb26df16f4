package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL      string        `envconfig:"CHAT_SERVER_URL" default:"http://localhost:4040"`
	Username       string        `envconfig:"CHAT_USERNAME" required:"true"`
	Password       string        `envconfig:"CHAT_PASSWORD" required:"true"`
	ReconnectDelay time.Duration `envconfig:"CHAT_RECONNECT_DELAY" default:"1s"`
	Colours        bool          `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, then keeps a websocket session open until Ctrl+C.
// Lines typed on stdin as "<recipientId> <text>" are sent to that user.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	if !config.Colours {
		color.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := NewSession(log, config.ServerURL, os.Stdout)
	identity, err := session.Authenticate(ctx, config.Username, config.Password)
	if err != nil {
		return exitRuntime, err
	}
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(
		fmt.Sprintf("  ====== connected as %s (%s) ======", identity.Username, identity.UserID)))

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// Fixed delay between attempts, the server keeps no session state to resume
	for {
		err := session.Run(ctx, lines)
		if ctx.Err() != nil {
			log.Info("Stopping client...")
			return exitOK, nil
		}
		log.Warn("Disconnected, reconnecting", "delay", config.ReconnectDelay, "error", err)
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-time.After(config.ReconnectDelay):
		}
	}
}
