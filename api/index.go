package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/internal/logging"
	"github.com/arnavshah/rota-matcher/internal/metrics"
	"github.com/arnavshah/rota-matcher/pkg/database"
	"github.com/arnavshah/rota-matcher/pkg/handlers"
)

var r *gin.Engine

func init() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}

	logger := logging.New(cfg.Log.Verbosity).WithName("serverless")
	metrics.Register()
	h := handlers.New(db, cfg, logger)
	if err := h.Auth.EnsureAdminExists(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Printf("creating admin user: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(h)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
