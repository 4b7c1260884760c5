package filestore

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"

	"github.com/jwulff/tubemarker/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodySize caps PUT bodies.
const maxBodySize = 16 << 20

type message struct {
	Message string `json:"message"`
}

type videoRoutes struct {
	file *File
}

// Handler returns the router serving GET and PUT /api/videos.
func Handler(file *File) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	rs := videoRoutes{file: file}
	r.Mount("/api/videos", rs.Routes())

	return r
}

func (rs videoRoutes) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", rs.List)
	r.Put("/", rs.Replace)

	return r
}

func (rs videoRoutes) List(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("[GET] reading %s", rs.file.Path())

	data, err := rs.file.Read()
	if err != nil {
		logger.Errorf("[GET] read failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{Message: "unable to read server data"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (rs videoRoutes) Replace(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, message{Message: "unable to read request body"})
		return
	}

	err = rs.file.Replace(body)
	switch {
	case errors.Is(err, ErrNotArray):
		writeJSON(w, http.StatusBadRequest, message{Message: "request body must be an array of videos"})
	case err != nil:
		logger.Errorf("[PUT] write failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{Message: "unable to save data on the server"})
	default:
		writeJSON(w, http.StatusOK, message{Message: "data saved"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.WithField("request_id", middleware.GetReqID(r.Context())).
			Debugf("%s %s -> %d in %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
