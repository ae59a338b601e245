package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
)

// WelcomeMessage is the body of GET /.
const WelcomeMessage = "Welcome to the IntelliStatement Backend API!"

// Root handles GET /
func Root(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
