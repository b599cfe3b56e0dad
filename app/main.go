package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adg-labs/pagepost/app/ai"
	"github.com/adg-labs/pagepost/app/api"
	"github.com/adg-labs/pagepost/app/cfg"
	"github.com/adg-labs/pagepost/app/database"
	"github.com/adg-labs/pagepost/app/facebook"
	"github.com/adg-labs/pagepost/app/post"
	"github.com/adg-labs/pagepost/app/scheduler"
	"github.com/adg-labs/pagepost/app/settings"
)

func main() {
	// Optional .env for local development; the real environment wins.
	godotenv.Load()

	appCfg, command, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting pagepost", "version", appCfg.Version)

	appSettings, err := settings.Load(appCfg.SettingsFile)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	uploadsDir := appCfg.UploadsDir
	if uploadsDir == "" {
		uploadsDir = filepath.Join(filepath.Dir(appCfg.DBPath), "uploads")
	}
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		slog.Error("Failed to create uploads directory", "dir", uploadsDir, "error", err)
		os.Exit(1)
	}

	repo := database.NewPostRepository(db)
	graphClient := facebook.NewClient(facebook.DefaultBaseURL, appCfg.GraphAPIVersion)
	generator := ai.NewGenerator(appCfg.OpenAIBaseURL, appCfg.OpenAIAPIKey, appCfg.OpenAIModel,
		appCfg.OpenAITemperature, appSettings.PromptTemplate)

	var keywords post.KeywordSuggester
	if appCfg.SerpAPIKey != "" {
		keywords = ai.NewKeywordClient(ai.DefaultSerpAPIBaseURL, appCfg.SerpAPIKey)
	} else {
		slog.Info("Keyword suggestions disabled (SERPAPI_KEY not set)")
	}

	defaultPageID := cmp.Or(appCfg.DefaultPageID, appSettings.DefaultPageID)
	publisher := post.NewPublisher(repo, graphClient, generator, keywords,
		appCfg.PageAccessToken, defaultPageID, uploadsDir)

	if command.IsSet() {
		os.Exit(runCommand(publisher, command))
	}

	runServer(appCfg, appSettings, repo, publisher, uploadsDir)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// runCommand executes a one-shot CLI operation and returns the exit code.
// Outcomes are printed as JSON so the binary can be scripted.
func runCommand(publisher *post.Publisher, command *cfg.Command) int {
	ctx := context.Background()

	var result interface{}
	var err error

	switch {
	case command.PreviewID > 0:
		result, err = publisher.Preview(ctx, command.PreviewID)
	case command.PublishID > 0:
		result, err = publisher.Publish(ctx, command.PublishID)
	case command.PublishNext:
		outcome, runErr := publisher.PublishNextApproved(ctx)
		if runErr == nil && outcome == nil {
			fmt.Println(`{"published":false,"message":"no approved posts in the queue"}`)
			return 0
		}
		result, err = outcome, runErr
	}

	if err != nil {
		slog.Error("Command failed", "error", err)
		return 1
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("Failed to encode result", "error", err)
		return 1
	}
	fmt.Println(string(encoded))
	return 0
}

func runServer(appCfg *cfg.Cfg, appSettings *settings.Settings, repo database.PostRepository,
	publisher *post.Publisher, uploadsDir string) {
	handler := api.NewHandler(repo, publisher, appSettings, uploadsDir, appCfg.Version)
	engine := api.NewServer(handler, appCfg.APIAccessKey)

	server := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		// Publishing large video files to the platform can take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	sched := scheduler.NewScheduler(publisher, appCfg.ScheduleHour, appCfg.ScheduleMinute)
	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
