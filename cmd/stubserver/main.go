package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/api/stub"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/logger"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	token := flag.String("token", "", "required Authorization header value, empty allows anonymous calls")
	flag.Parse()

	opts := logger.DefaultOptions()
	opts.Dir = ""
	opts.Name = "stubserver"
	log, err := logger.NewLoggerAdapter(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	handler, err := stub.NewHandler(stub.Options{Token: *token, RequestLog: true})
	if err != nil {
		log.Error("Failed to build stub", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Shutdown failed", "error", err)
		}
	}()

	log.Info("AirportGap stub listening", "addr", *addr, "auth", *token != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
