package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/client"
	"github.com/discountcodes/discount-server-go/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := client.Dial(ctx, cfg.ServerURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	fmt.Printf("Connected to %s\n", cfg.ServerURL)

	console := client.NewConsole(os.Stdin, os.Stdout, c)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		console.PrintResponses(c.Responses())
	}()

	finished := make(chan error, 1)
	go func() { finished <- console.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-finished:
		if err != nil {
			log.Error().Err(err).Msg("console stopped")
		}
	case <-printed:
		log.Warn().Err(c.Err()).Msg("server closed the connection")
	case <-quit:
	}

	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("close failed")
	}
	fmt.Println("Connection closed.")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
