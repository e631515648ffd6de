package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fahmykhattab/docuai/internal/api/handlers"
	"github.com/fahmykhattab/docuai/internal/config"
	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/rag"
	"github.com/fahmykhattab/docuai/internal/core/search"
	"github.com/fahmykhattab/docuai/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, blobs core.BlobStore, docs *services.DocumentService, engine *search.Engine, ragService *rag.Service) *Server {
	docHandler := handlers.NewDocumentHandler(db, blobs, docs, engine, cfg)
	chatHandler := handlers.NewChatHandler(db, ragService)
	vocabHandler := handlers.NewVocabHandler(db)
	dashHandler := handlers.NewDashboardHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/documents", func(docs chi.Router) {
			docs.Post("/upload", docHandler.Upload)
			docs.Get("/", docHandler.List)
			docs.Get("/search", docHandler.Search)
			docs.Route("/{id}", func(doc chi.Router) {
				doc.Get("/", docHandler.Get)
				doc.Patch("/", docHandler.Update)
				doc.Delete("/", docHandler.Delete)
				doc.Post("/reprocess", docHandler.Reprocess)
				doc.Get("/logs", docHandler.Logs)
				doc.Get("/download", docHandler.Download)
				doc.Get("/thumbnail", docHandler.Thumbnail)
			})
		})

		api.Route("/tags", func(t chi.Router) {
			t.Get("/", vocabHandler.ListTags)
			t.Post("/", vocabHandler.CreateTag)
			t.Patch("/{id}", vocabHandler.UpdateTag)
			t.Delete("/{id}", vocabHandler.DeleteTag)
		})
		api.Route("/document-types", func(t chi.Router) {
			t.Get("/", vocabHandler.ListDocumentTypes)
			t.Post("/", vocabHandler.CreateDocumentType)
			t.Patch("/{id}", vocabHandler.UpdateDocumentType)
			t.Delete("/{id}", vocabHandler.DeleteDocumentType)
		})
		api.Route("/correspondents", func(t chi.Router) {
			t.Get("/", vocabHandler.ListCorrespondents)
			t.Post("/", vocabHandler.CreateCorrespondent)
			t.Patch("/{id}", vocabHandler.UpdateCorrespondent)
			t.Delete("/{id}", vocabHandler.DeleteCorrespondent)
		})

		api.Route("/chat", func(c chi.Router) {
			c.Post("/", chatHandler.Ask)
			c.Get("/history", chatHandler.History)
		})

		api.Get("/dashboard/stats", dashHandler.Stats)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
