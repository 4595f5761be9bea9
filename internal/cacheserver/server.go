package cacheserver

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"granite/internal/drawio"
)

// ─────────────────────────────────────────────────────────────
// Drawio cache service — hash-keyed SVG preview storage
// ─────────────────────────────────────────────────────────────

// DefaultMaxAgeDays is how long cached previews are kept before the
// janitor removes them.
const DefaultMaxAgeDays = 30

// cacheDirName is the hidden folder inside the notes directory where
// previews live, one <hash>.svg file per entry.
const cacheDirName = ".drawio-cache"

// Server is the HTTP cache service consumed by the drawio cache client.
// Entries are only ever read and written by clients; deletion happens
// through the maintenance endpoints and the scheduled janitor.
type Server struct {
	dir     string
	hasher  *drawio.Hasher
	janitor *cron.Cron
}

// New creates a Server storing entries under notesDir/.drawio-cache,
// creating the directory if needed.
func New(notesDir string, hasher *drawio.Hasher) (*Server, error) {
	dir := filepath.Join(notesDir, cacheDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Server{dir: dir, hasher: hasher}, nil
}

// Dir returns the cache directory.
func (s *Server) Dir() string { return s.dir }

// Handler returns the route table for the cache API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/drawio-cache", s.handleSave)
	mux.HandleFunc("POST /api/drawio-cache/cleanup", s.handleCleanup)
	mux.HandleFunc("GET /api/drawio-cache", s.handleStats)
	mux.HandleFunc("DELETE /api/drawio-cache", s.handleClear)
	mux.HandleFunc("GET /api/drawio-cache/{hash}", s.handleGet)
	mux.HandleFunc("DELETE /api/drawio-cache/{hash}", s.handleDelete)
	return mux
}

// StartJanitor schedules the daily cleanup of entries older than
// DefaultMaxAgeDays. Runs at 03:00 local time.
func (s *Server) StartJanitor() {
	s.janitor = cron.New()
	s.janitor.AddFunc("0 3 * * *", func() {
		count, size := s.cleanup(DefaultMaxAgeDays * 24 * time.Hour)
		if count > 0 {
			log.Printf("[drawio-cache] janitor removed %d entries (%d bytes)", count, size)
		}
	})
	s.janitor.Start()
}

// StopJanitor stops the scheduled cleanup.
func (s *Server) StopJanitor() {
	if s.janitor != nil {
		s.janitor.Stop()
	}
}

type saveRequest struct {
	XML string `json:"xml"`
	SVG string `json:"svg"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.XML == "" || req.SVG == "" {
		writeError(w, http.StatusBadRequest, "XML and SVG content required")
		return
	}

	key := s.hasher.Fingerprint(req.XML)
	if err := os.WriteFile(filepath.Join(s.dir, key+".svg"), []byte(req.SVG), 0644); err != nil {
		log.Printf("[drawio-cache] write %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "failed to save cache entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"hash":    key,
		"message": "SVG cached successfully",
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("hash")
	if !validHash(key) {
		writeError(w, http.StatusBadRequest, "invalid cache hash")
		return
	}

	data, err := os.ReadFile(filepath.Join(s.dir, key+".svg"))
	if err != nil {
		writeError(w, http.StatusNotFound, "cache entry not found")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("hash")
	if !validHash(key) {
		writeError(w, http.StatusBadRequest, "invalid cache hash")
		return
	}

	// Deleting an absent entry still succeeds.
	os.Remove(filepath.Join(s.dir, key+".svg"))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cache entry deleted",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	entries, _ := filepath.Glob(filepath.Join(s.dir, "*.svg"))

	var totalSize int64
	var oldest time.Time
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		totalSize += info.Size()
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}

	var oldestAgeDays any
	if !oldest.IsZero() {
		oldestAgeDays = math.Round(time.Since(oldest).Hours()/24*10) / 10
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_count":           len(entries),
		"total_size_bytes":     totalSize,
		"total_size_mb":        math.Round(float64(totalSize)/(1024*1024)*100) / 100,
		"oldest_file_age_days": oldestAgeDays,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	maxAgeDays := DefaultMaxAgeDays
	if q := r.URL.Query().Get("max_age_days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "max_age_days must be between 1 and 365")
			return
		}
		maxAgeDays = n
	}

	count, size := s.cleanup(time.Duration(maxAgeDays) * 24 * time.Hour)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"deleted_count":      count,
		"deleted_size_bytes": size,
		"deleted_size_mb":    math.Round(float64(size)/(1024*1024)*100) / 100,
		"message":            fmt.Sprintf("Removed %d files older than %d days", count, maxAgeDays),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	entries, _ := filepath.Glob(filepath.Join(s.dir, "*.svg"))
	count := 0
	for _, path := range entries {
		if os.Remove(path) == nil {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_count": count,
		"message":       fmt.Sprintf("Cleared %d cached files", count),
	})
}

// cleanup removes entries older than maxAge and reports what it freed.
// Entries deleted underneath us by another process are skipped.
func (s *Server) cleanup(maxAge time.Duration) (int, int64) {
	entries, _ := filepath.Glob(filepath.Join(s.dir, "*.svg"))
	cutoff := time.Now().Add(-maxAge)

	count := 0
	var size int64
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(path) == nil {
				count++
				size += info.Size()
			}
		}
	}
	return count, size
}

func validHash(key string) bool {
	if len(key) != drawio.FingerprintLen {
		return false
	}
	for _, c := range key {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
