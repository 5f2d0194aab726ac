package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/speakup-coach/backend/internal/auth"
	"github.com/speakup-coach/backend/internal/challenge"
	"github.com/speakup-coach/backend/internal/coach"
	"github.com/speakup-coach/backend/internal/config"
	"github.com/speakup-coach/backend/internal/conversation"
	"github.com/speakup-coach/backend/internal/database"
	"github.com/speakup-coach/backend/internal/gamification"
	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/middleware"
	"github.com/speakup-coach/backend/internal/practice"
	"github.com/speakup-coach/backend/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(cfg.Database, logg); err != nil {
		logg.Fatal("failed to run migrations", "error", err)
	}

	catalog, err := practice.LoadCatalog()
	if err != nil {
		logg.Fatal("invalid practice catalog", "error", err)
	}

	client, err := llm.NewClient(cfg.LLM, logg)
	if err != nil {
		logg.Fatal("failed to create text generator", "error", err)
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to create conversation store", "error", err)
	}
	defer closeSessions()

	// Services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	progressSvc := progress.NewService(progress.NewStore(db), logg)
	generator := practice.NewGenerator(client, catalog, logg, practice.WithTimeout(cfg.LLM.PracticeTimeout))
	coachSvc := coach.NewService(client, progressSvc, logg, cfg.LLM.Timeout)
	conversationSvc := conversation.NewService(client, sessions, progressSvc, logg, cfg.LLM.Timeout)
	challengeSvc := challenge.NewService(challenge.NewStore(db), client, progressSvc, logg, cfg.LLM.Timeout)

	// Handlers
	authHandler := auth.NewHandler(auth.NewStore(db), tokens, logg)
	practiceHandler := practice.NewHandler(generator, logg)
	coachHandler := coach.NewHandler(coachSvc, logg)
	conversationHandler := conversation.NewHandler(conversationSvc, logg)
	challengeHandler := challenge.NewHandler(challengeSvc, logg)
	progressHandler := progress.NewHandler(progressSvc)
	gamHandler := gamification.NewHandler(gamification.NewService(gamification.NewStore(db), logg))

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logg))
	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(tokens))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/auth/update", authHandler.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/ai/analyze", coachHandler.Analyze).Methods("POST")

	protected.HandleFunc("/lessons/generate", coachHandler.GenerateLesson).Methods("POST")
	protected.HandleFunc("/lessons/modes", practiceHandler.Modes).Methods("GET")
	protected.HandleFunc("/lessons/rapidfire", practiceHandler.RapidFire).Methods("GET")
	protected.HandleFunc("/lessons/wordbuilder/word", practiceHandler.WordBuilderWord).Methods("GET")
	protected.HandleFunc("/lessons/wordbuilder/evaluate", practiceHandler.WordBuilderEvaluate).Methods("POST")

	protected.HandleFunc("/conversation/scenarios", conversationHandler.Scenarios).Methods("GET")
	protected.HandleFunc("/conversation/start", conversationHandler.Start).Methods("POST")
	protected.HandleFunc("/conversation/message", conversationHandler.Message).Methods("POST")
	protected.HandleFunc("/conversation/end", conversationHandler.End).Methods("POST")

	protected.HandleFunc("/challenge/daily", challengeHandler.Daily).Methods("GET")
	protected.HandleFunc("/challenge/complete", challengeHandler.Complete).Methods("POST")
	protected.HandleFunc("/challenge/leaderboard", challengeHandler.Leaderboard).Methods("GET")

	protected.HandleFunc("/progress/dashboard", progressHandler.Dashboard).Methods("GET")
	protected.HandleFunc("/progress/weekly", progressHandler.Weekly).Methods("GET")
	protected.HandleFunc("/progress/skills", progressHandler.Skills).Methods("GET")
	protected.HandleFunc("/progress/update", progressHandler.Update).Methods("POST")
	protected.HandleFunc("/progress/achievements", gamHandler.GetAchievements).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("server starting", "port", cfg.Server.Port, "env", cfg.Env, "model", client.ModelName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", "error", err)
	}
}

// newSessionStore builds the configured conversation store. The memory
// store gets a sweeper tied to ctx.
func newSessionStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (conversation.Store, func(), error) {
	switch cfg.Sessions.Store {
	case config.SessionStoreRedis:
		rdb, err := conversation.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logg.Info("conversations stored in redis", "address", cfg.Redis.Address, "ttl", cfg.Sessions.TTL)
		return conversation.NewRedisStore(rdb, cfg.Sessions.TTL), func() { rdb.Close() }, nil
	default:
		store := conversation.NewMemoryStore(cfg.Sessions.TTL)
		conversation.NewSweeper(store, cfg.Sessions.SweepInterval, logg).Start(ctx)
		logg.Info("conversations stored in memory", "ttl", cfg.Sessions.TTL)
		return store, func() {}, nil
	}
}
