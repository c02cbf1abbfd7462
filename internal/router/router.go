package router

import (
	"net/http"

	"github.com/BerylCAtieno/agreement-analyzer/internal/handlers"
	"github.com/BerylCAtieno/agreement-analyzer/internal/middleware"
	"github.com/BerylCAtieno/agreement-analyzer/internal/services"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"

	"github.com/gorilla/mux"
)

const apiPrefix = "/api/v1"

func NewRouter(docService services.DocumentService, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	docHandler := handlers.NewDocumentHandler(docService, maxFileSize, logger)

	// Routes sit on the root router so a method mismatch answers 405.
	r.HandleFunc(apiPrefix+"/health", docHandler.Health).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/analyze", docHandler.AnalyzeDocument).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc(apiPrefix+"/history/{email}", docHandler.History).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc(apiPrefix+"/analyses/{id}", docHandler.Analysis).Methods(http.MethodGet, http.MethodOptions)

	return r
}
