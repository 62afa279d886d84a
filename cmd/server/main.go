package main

import (
	"crypto/tls"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/loot-auction/internal/config"
	"github.com/example/loot-auction/internal/game"
	srv "github.com/example/loot-auction/internal/server"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	r := mux.NewRouter()

	gs := srv.NewGameServer(game.DefaultTiming())

	// CORS headers first so browser clients can reach the API from anywhere
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}).Methods("GET")

	gs.Routes(r)

	serveTLS := cfg.CertFile != "" && cfg.KeyFile != ""
	if serveTLS {
		if _, err := os.Stat(cfg.CertFile); os.IsNotExist(err) {
			log.Warn().Str("cert", cfg.CertFile).Msg("certificate file not found")
			serveTLS = false
		}
	}

	if !serveTLS {
		if cfg.TLSOnly {
			log.Fatal().Msg("tls-only mode enabled but certificates not found")
		}
		addr := ":" + cfg.HTTPPort
		log.Info().Str("addr", addr).Msg("loot auction backend (HTTP) listening")
		log.Fatal().Err(http.ListenAndServe(addr, r)).Msg("http server stopped")
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}

	go func() {
		addr := ":" + cfg.HTTPSPort
		log.Info().Str("addr", addr).Msg("loot auction backend (HTTPS) listening")
		server := &http.Server{Addr: addr, Handler: r, TLSConfig: tlsConfig}
		if err := server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil {
			log.Fatal().Err(err).Msg("https server failed")
		}
	}()

	if !cfg.TLSOnly {
		addr := ":" + cfg.HTTPPort
		log.Info().Str("addr", addr).Msg("loot auction backend (HTTP) listening")
		log.Fatal().Err(http.ListenAndServe(addr, r)).Msg("http server stopped")
	} else {
		select {}
	}
}
