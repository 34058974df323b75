package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SAADX25/SafeChat/internal/auth"
	"github.com/SAADX25/SafeChat/internal/config"
	"github.com/SAADX25/SafeChat/internal/handlers"
	"github.com/SAADX25/SafeChat/internal/services"
	"github.com/SAADX25/SafeChat/internal/socket"
	"github.com/SAADX25/SafeChat/internal/store"
	"github.com/SAADX25/SafeChat/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize storage backend
	db, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store: %v", err)
	}
	defer db.Close()

	// Initialize services
	authService := auth.NewService(db, cfg)
	channelService := services.NewChannelService(db)

	// Initialize realtime hub
	presence := socket.NewPresenceTracker(db)
	hub := socket.NewHub(db, presence, cfg.Presence.Grace)
	go hub.Run()

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	channelHandlers := handlers.NewChannelHandlers(channelService, authService)
	uploadHandlers := handlers.NewUploadHandlers(authService, db, cfg.Uploads.Dir, cfg.Uploads.MaxSize)
	wsHandlers := handlers.NewWebSocketHandlers(authService, channelService, hub)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, channelHandlers, uploadHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	hub.Stop()
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.DatabaseURL != "" {
		return store.NewPostgresStore(context.Background(), cfg.Store.DatabaseURL)
	}
	return store.NewJSONFileStore(cfg.Store.Path)
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, channelHandlers *handlers.ChannelHandlers, uploadHandlers *handlers.UploadHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)

	// Channel routes
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			channelHandlers.ListChannels(w, r)
		case http.MethodPost:
			channelHandlers.CreateChannel(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Channel sub-routes
	mux.HandleFunc("/channels/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /channels/{id}/messages
		if len(parts) == 4 && parts[3] == "messages" && r.Method == http.MethodGet {
			channelHandlers.GetMessages(w, r)
			return
		}

		// /channels/{id} DELETE
		if len(parts) == 3 && r.Method == http.MethodDelete {
			channelHandlers.DeleteChannel(w, r)
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// Presence
	mux.HandleFunc("/online", wsHandlers.HandleOnline)

	// Uploads
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		uploadHandlers.HandleUpload(w, r)
	})
	mux.HandleFunc("/files/", uploadHandlers.HandleDownload)

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
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
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /register")
	logger.Info("   POST /login")
	logger.Info("   GET  /channels")
	logger.Info("   POST /channels")
	logger.Info("   GET  /channels/{id}/messages")
	logger.Info("   DELETE /channels/{id}")
	logger.Info("   GET  /online")
	logger.Info("   POST /upload")
	logger.Info("   GET  /files/{id}")
}
