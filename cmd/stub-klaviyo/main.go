package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// A local stand-in for the Klaviyo API so the relay can be exercised end
// to end without credentials: profiles live in memory, repeat creates
// conflict with a duplicate_profile_id, and subscription jobs settle to
// complete on the second poll.

type stub struct {
	mu       sync.Mutex
	profiles map[string]string // email -> profile ID
	jobs     map[string]int    // job ID -> polls observed
}

func newStub() *stub {
	return &stub{
		profiles: make(map[string]string),
		jobs:     make(map[string]int),
	}
}

type profileRequest struct {
	Data struct {
		Attributes struct {
			Email string `json:"email"`
		} `json:"attributes"`
	} `json:"data"`
}

func (s *stub) createProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Data.Attributes.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": []map[string]interface{}{{"detail": "a profile email is required"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(req.Data.Attributes.Email)
	if id, exists := s.profiles[email]; exists {
		log.Printf("POST /api/profiles/ -> 409 duplicate of %s", id)
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"errors": []map[string]interface{}{{
				"code":   "duplicate_profile",
				"detail": "A profile already exists with one of these identifiers.",
				"meta":   map[string]string{"duplicate_profile_id": id},
			}},
		})
		return
	}

	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:26]
	s.profiles[email] = id
	log.Printf("POST /api/profiles/ -> 201 %s (%s)", id, email)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{"type": "profile", "id": id},
	})
}

func (s *stub) updateProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log.Printf("PATCH /api/profiles/%s/ -> 200", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"type": "profile", "id": id},
	})
}

func (s *stub) lookupProfile(w http.ResponseWriter, r *http.Request) {
	// filter=equals(email,"jane@example.com")
	filter := r.URL.Query().Get("filter")
	email := filter
	if i := strings.Index(filter, `"`); i >= 0 {
		if j := strings.LastIndex(filter, `"`); j > i {
			email = filter[i+1 : j]
		}
	}

	s.mu.Lock()
	id, exists := s.profiles[strings.ToLower(email)]
	s.mu.Unlock()

	data := []map[string]interface{}{}
	if exists {
		data = append(data, map[string]interface{}{"type": "profile", "id": id})
	}
	log.Printf("GET /api/profiles/?filter=%s -> %d match(es)", filter, len(data))
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (s *stub) createJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	jobID := fmt.Sprintf("STUBJOB%d", len(s.jobs)+1)
	s.jobs[jobID] = 0
	s.mu.Unlock()

	log.Printf("POST /api/profile-subscription-bulk-create-jobs/ -> 202 %s", jobID)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{
			"type":       "profile-subscription-bulk-create-job",
			"id":         jobID,
			"attributes": map[string]interface{}{"status": "queued"},
		},
	})
}

func (s *stub) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	s.mu.Lock()
	polls, exists := s.jobs[jobID]
	if exists {
		s.jobs[jobID] = polls + 1
	}
	s.mu.Unlock()

	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"errors": []map[string]interface{}{{"detail": "no such job"}},
		})
		return
	}

	status := "processing"
	completed := 0
	if polls >= 1 {
		status = "complete"
		completed = 1
	}
	log.Printf("GET /api/profile-subscription-bulk-create-jobs/%s/ -> %s", jobID, status)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"type": "profile-subscription-bulk-create-job",
			"id":   jobID,
			"attributes": map[string]interface{}{
				"status":          status,
				"total_count":     1,
				"completed_count": completed,
				"failed_count":    0,
			},
		},
	})
}

func (s *stub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "stub-klaviyo"})
	})
	mux.HandleFunc("POST /api/profiles/", s.createProfile)
	mux.HandleFunc("PATCH /api/profiles/{id}/", s.updateProfile)
	mux.HandleFunc("GET /api/profiles/", s.lookupProfile)
	mux.HandleFunc("POST /api/profile-subscription-bulk-create-jobs/", s.createJob)
	mux.HandleFunc("GET /api/profile-subscription-bulk-create-jobs/{id}/", s.getJob)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// requireAPIKey flags requests missing the Klaviyo auth header. The stub
// still serves them; local runs should not fail on credentials.
func requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Klaviyo-API-Key ") {
			log.Printf("WARNING: %s %s without a Klaviyo-API-Key header", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  WARNING: This is a STUB Klaviyo API for local runs ONLY. ║")
	log.Println("║  Profiles live in memory and vanish on restart.           ║")
	log.Println("║                                                           ║")
	log.Println("║  Point the relay at it with:                              ║")
	log.Println("║    KLAVIYO_BASE_URL=http://localhost:9090                 ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	s := newStub()

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      requireAPIKey(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Stub Klaviyo listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down stub...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Stub stopped")
}
