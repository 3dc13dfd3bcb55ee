package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"skillduel/internal/service"
	"skillduel/internal/transport/rest/handler"
	"skillduel/internal/transport/rest/middleware"
	"skillduel/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	RoomService    *service.RoomService
	AttemptService *service.AttemptService
	StatsService   *service.StatsService
	WSHub          *ws.Hub
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService)
	attemptHandler := handler.NewAttemptHandler(c.AttemptService)
	statsHandler := handler.NewStatsHandler(c.StatsService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/guest", authHandler.Guest).Methods("POST")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/duels/{id}", wsHandler.DuelWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Authenticated routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/duels", roomHandler.Create).Methods("POST")
	userRoutes.HandleFunc("/duels/open", roomHandler.ListOpen).Methods("GET")
	userRoutes.HandleFunc("/duels/{id}", roomHandler.Get).Methods("GET")
	userRoutes.HandleFunc("/duels/{id}/join", roomHandler.Join).Methods("POST")
	userRoutes.HandleFunc("/duels/{id}/ready", roomHandler.Ready).Methods("POST")
	userRoutes.HandleFunc("/duels/{id}/start", roomHandler.Start).Methods("POST")
	userRoutes.HandleFunc("/duels/{id}/attempts", attemptHandler.Submit).Methods("POST")
	userRoutes.HandleFunc("/duels/{id}/leaderboard", roomHandler.Leaderboard).Methods("GET")
	userRoutes.HandleFunc("/users/{id}/duel-stats", statsHandler.GetUserStats).Methods("GET")

	corsMW := cors.New(cors.Options{
		AllowedOrigins: c.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return corsMW.Handler(r)
}
