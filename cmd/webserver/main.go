package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examprep"

	"github.com/gorilla/sessions"
)

func main() {
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	envFile := flag.String("env", "", "Path to a .env file (default .env)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	examprep.SetVerbose(*verbose)
	log.Println("[STARTUP] Exam prep server starting...")

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := examprep.LoadConfig(envFiles...)
	if err != nil {
		log.Fatalf("[FATAL] Invalid configuration: %v", err)
	}
	if cfg.APIKey == "" {
		log.Println("[CONFIG] OPENAI_API_KEY is not set, generated content falls back to defaults")
	}
	log.Printf("[CONFIG] Model %s, %d questions per quiz, %s per quiz", cfg.Model, cfg.QuestionCount, cfg.TimeBudget)

	log.Printf("[STARTUP] Opening database %s...", cfg.DBPath)
	store, err := examprep.OpenStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open database: %v", err)
	}
	if err := store.CreateTables(); err != nil {
		log.Fatalf("[FATAL] Failed to create tables: %v", err)
	}

	generator := examprep.NewGenerator(cfg.APIKey, cfg.GeneratorOptions()...)

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.PlayerIdleTimeout / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	server := NewServer(cfg, generator, store, sessionStore)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     server.Routes(),
		ReadTimeout: 15 * time.Second,
		// generation requests hold the response open
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	evictCtx, stopEvictor := context.WithCancel(context.Background())
	go server.RunEvictor(evictCtx, time.Minute)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		stopEvictor()
		log.Println("[SHUTDOWN] Received shutdown signal, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("[ERROR] Error stopping server: %v", err)
		}
	}()

	log.Printf("[STARTUP] Server ready to accept connections at http://localhost:%s", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[FATAL] Server failed to start: %v", err)
	}

	server.Close()
	if err := store.Close(); err != nil {
		log.Printf("[ERROR] Error closing database: %v", err)
	} else {
		log.Println("[SHUTDOWN] Database connection closed successfully")
	}
}
