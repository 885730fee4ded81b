// Package gophishtest provides an in-memory Gophish server for tests.
package gophishtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/pca/internal/gophish"
)

// Object kinds, as they appear in API paths
const (
	Campaigns = "campaigns"
	Groups    = "groups"
	Pages     = "pages"
	Templates = "templates"
	SMTP      = "smtp"
)

var kindLabel = map[string]string{
	Campaigns: "Campaign",
	Groups:    "Group",
	Pages:     "Page",
	Templates: "Template",
	SMTP:      "SMTP",
}

// Call is one request received by the server
type Call struct {
	Method string
	Kind   string
	Name   string // set on create
	ID     int64  // set on get and delete
}

func (c Call) String() string {
	if c.Name != "" {
		return fmt.Sprintf("%s %s %s", c.Method, c.Kind, c.Name)
	}
	return fmt.Sprintf("%s %s %d", c.Method, c.Kind, c.ID)
}

type record = map[string]any

type failure struct {
	status  int
	message string
}

// Server is a fake Gophish API
type Server struct {
	*httptest.Server
	APIKey string

	mu       sync.Mutex
	nextID   int64
	objects  map[string][]record
	calls    []Call
	rejected map[string]bool
	failures map[string]failure
	now      func() time.Time
}

// NewServer starts a fake server accepting apiKey
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey:   apiKey,
		objects:  make(map[string][]record),
		rejected: make(map[string]bool),
		failures: make(map[string]failure),
		now:      time.Now,
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		for _, kind := range []string{Campaigns, Groups, Pages, Templates, SMTP} {
			r.Route("/"+kind, func(r chi.Router) {
				r.Get("/", s.handleList(kind))
				r.Post("/", s.handleCreate(kind))
				r.Get("/{id}", s.handleGet(kind))
				r.Delete("/{id}", s.handleDelete(kind))
				if kind == Campaigns {
					r.Get("/{id}/complete", s.handleComplete)
					r.Get("/{id}/summary", s.handleSummary)
				}
			})
		}
	})

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.APIKey {
			writeMessage(w, http.StatusUnauthorized, "Invalid API Key", false)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Add stores obj under kind and returns its assigned ID
func (s *Server) Add(kind string, obj gophish.Object) int64 {
	data, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(kind, rec)
}

func (s *Server) insert(kind string, rec record) int64 {
	s.nextID++
	rec["id"] = s.nextID
	s.objects[kind] = append(s.objects[kind], rec)
	return s.nextID
}

// RejectName makes every create of name fail with a name collision
func (s *Server) RejectName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[name] = true
}

// Fail makes every request with method on kind fail with status
func (s *Server) Fail(method, kind string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+kind] = failure{status: status, message: message}
}

// Calls returns the requests received so far
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// ResetCalls clears the call log
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Names returns the names of the stored objects of kind, in creation order
func (s *Server) Names(kind string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, rec := range s.objects[kind] {
		names = append(names, nameOf(rec))
	}
	return names
}

// Get decodes the stored object of kind named name into v
func (s *Server) Get(kind, name string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.objects[kind] {
		if nameOf(rec) == name {
			data, _ := json.Marshal(rec)
			return json.Unmarshal(data, v) == nil
		}
	}
	return false
}

func (s *Server) record(c Call) {
	s.calls = append(s.calls, c)
}

func (s *Server) failed(w http.ResponseWriter, method, kind string) bool {
	f, ok := s.failures[method+" "+kind]
	if !ok {
		return false
	}
	writeMessage(w, f.status, f.message, false)
	return true
}

func (s *Server) find(kind string, id int64) (int, record) {
	for i, rec := range s.objects[kind] {
		if idOf(rec) == id {
			return i, rec
		}
	}
	return -1, nil
}

func (s *Server) exists(kind, name string) bool {
	for _, rec := range s.objects[kind] {
		if nameOf(rec) == name {
			return true
		}
	}
	return false
}

func (s *Server) handleList(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(Call{Method: r.Method, Kind: kind})
		if s.failed(w, r.Method, kind) {
			return
		}

		list := s.objects[kind]
		if list == nil {
			list = []record{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleGet(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(Call{Method: r.Method, Kind: kind, ID: id})
		if s.failed(w, r.Method, kind) {
			return
		}

		_, rec := s.find(kind, id)
		if rec == nil {
			writeMessage(w, http.StatusNotFound, kindLabel[kind]+" not found", false)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleCreate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON structure", false)
			return
		}
		name := nameOf(rec)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(Call{Method: r.Method, Kind: kind, Name: name})
		if s.failed(w, r.Method, kind) {
			return
		}

		// Gophish allows duplicate campaign names
		if kind != Campaigns && (s.rejected[name] || s.exists(kind, name)) {
			writeMessage(w, http.StatusConflict, kindLabel[kind]+" name already in use", false)
			return
		}

		if kind == Campaigns {
			if msg := s.checkCampaignRefs(rec); msg != "" {
				writeMessage(w, http.StatusBadRequest, msg, false)
				return
			}
			rec["status"] = "Queued"
			rec["created_date"] = s.now().Format(time.RFC3339)
		}
		rec["modified_date"] = s.now().Format(time.RFC3339)

		s.insert(kind, rec)
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) checkCampaignRefs(rec record) string {
	groups, _ := rec["groups"].([]any)
	if len(groups) == 0 {
		return "No groups specified"
	}
	for _, g := range groups {
		gm, _ := g.(map[string]any)
		if name := nameOf(gm); !s.exists(Groups, name) {
			return fmt.Sprintf("Group %s does not exist", name)
		}
	}
	refs := []struct{ key, kind string }{
		{"page", Pages},
		{"template", Templates},
		{"smtp", SMTP},
	}
	for _, ref := range refs {
		m, _ := rec[ref.key].(map[string]any)
		if name := nameOf(m); !s.exists(ref.kind, name) {
			return fmt.Sprintf("%s %s does not exist", kindLabel[ref.kind], name)
		}
	}
	return ""
}

func (s *Server) handleDelete(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(Call{Method: r.Method, Kind: kind, ID: id})
		if s.failed(w, r.Method, kind) {
			return
		}

		i, rec := s.find(kind, id)
		if rec == nil {
			writeMessage(w, http.StatusNotFound, kindLabel[kind]+" not found", false)
			return
		}
		s.objects[kind] = append(s.objects[kind][:i], s.objects[kind][i+1:]...)
		writeMessage(w, http.StatusOK, kindLabel[kind]+" deleted successfully!", true)
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Method: "COMPLETE", Kind: Campaigns, ID: id})

	_, rec := s.find(Campaigns, id)
	if rec == nil {
		writeMessage(w, http.StatusNotFound, "Campaign not found", false)
		return
	}
	rec["status"] = "Completed"
	rec["completed_date"] = s.now().Format(time.RFC3339)
	writeMessage(w, http.StatusOK, "Campaign completed successfully!", true)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Method: "SUMMARY", Kind: Campaigns, ID: id})

	_, rec := s.find(Campaigns, id)
	if rec == nil {
		writeMessage(w, http.StatusNotFound, "Campaign not found", false)
		return
	}

	data, _ := json.Marshal(rec)
	var c gophish.Campaign
	_ = json.Unmarshal(data, &c)

	sum := gophish.Summary{
		ID:            c.ID,
		Name:          c.Name,
		Status:        c.Status,
		CreatedDate:   c.CreatedDate,
		LaunchDate:    c.LaunchDate,
		CompletedDate: c.CompletedDate,
	}
	for _, ev := range c.Timeline {
		switch ev.Message {
		case gophish.EventEmailSent:
			sum.Stats.Sent++
			sum.Stats.Total++
		case gophish.EventSendError:
			sum.Stats.Error++
			sum.Stats.Total++
		case gophish.EventClicked:
			sum.Stats.Clicked++
		}
	}
	writeJSON(w, http.StatusOK, sum)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid ID", false)
		return 0, false
	}
	return id, true
}

func nameOf(rec map[string]any) string {
	name, _ := rec["name"].(string)
	return name
}

func idOf(rec record) int64 {
	switch v := rec["id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string, success bool) {
	writeJSON(w, status, gophish.Response{Message: message, Success: success})
}
