package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowkeeper/executor"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/metadata"
	"go.uber.org/zap"
)

type Config struct {
	HttpPort int
	// LockWait bounds how long a request waits for the lock of its
	// conversation.
	LockWait  time.Duration
	RateLimit RateLimitConfig
}

type Server struct {
	http.Server
	Port            int
	lockWait        time.Duration
	metadataService metadata.MetadataService
	executor        *executor.FlowExecutor
	limiter         *clientLimiter
}

func NewServer(conf Config, metadataService metadata.MetadataService, flowExecutor *executor.FlowExecutor) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", conf.HttpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService: metadataService,
		executor:        flowExecutor,
		Port:            conf.HttpPort,
		lockWait:        conf.LockWait,
		limiter:         newClientLimiter(conf.RateLimit),
	}

	router := mux.NewRouter()
	router.HandleFunc("/metadata/flow", s.HandleCreateFlow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/flow", s.HandleListFlows).Methods(http.MethodGet)
	router.HandleFunc("/metadata/flow/{id}", s.HandleGetFlow).Methods(http.MethodGet)
	router.HandleFunc("/metadata/flow/{id}", s.HandleDeleteFlow).Methods(http.MethodDelete)

	router.HandleFunc("/flows/{id}", s.HandleLaunchFlow).Methods(http.MethodPost)
	router.HandleFunc("/executions/{key}", s.HandleResumeFlow).Methods(http.MethodPost)
	router.HandleFunc("/executions/{key}", s.HandleGetFlowExecution).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	router.Use(s.limiter.middleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

// requestContext bounds the wait for a conversation lock.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.lockWait <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.lockWait)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info(r.RequestURI, zap.String("method", r.Method), zap.Duration("took", time.Since(start)))
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
