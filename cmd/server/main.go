package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vela/internal/api"
	"vela/internal/engine"
	"vela/internal/net"
	"vela/internal/pubsub"
)

func main() {
	tcpAddress := flag.String("tcp-address", "0.0.0.0", "address for the TCP matching front end")
	tcpPort := flag.Int("tcp-port", 9001, "port for the TCP matching front end")
	httpAddr := flag.String("http-address", "0.0.0.0:8080", "address for the HTTP/WebSocket front end")
	poolSize := flag.Int("pool-size", 0, "matching dispatch pool size (0 selects the default)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	bus := pubsub.New()
	eng := engine.New(bus, *poolSize)
	defer eng.Close()

	tcpServer := net.New(*tcpAddress, *tcpPort, eng)
	go tcpServer.Run(ctx)

	httpServer := &http.Server{
		Addr:              *httpAddr,
		Handler:           api.New(eng, bus),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("address", *httpAddr).Msg("http server running")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	}
}
