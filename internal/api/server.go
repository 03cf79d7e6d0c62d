package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"studyprep/internal/models"
	"studyprep/internal/services"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Deps collects everything the HTTP layer needs.
type Deps struct {
	PingMessage string
	CORSOrigin  string
	Logger      *slog.Logger
	Metrics     http.Handler

	Users     *services.UserService
	Extractor *services.ExtractorService
	Generator *services.GenerationService
	Papers    *services.PaperStore
	Sets      *services.QuestionSetStore
	Docs      *services.DocumentStore
	Exporter  *services.ExportService
	Study     *services.StudyService
}

type Server struct {
	router chi.Router
	deps   Deps
}

func NewServer(deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(corsMiddleware(s.deps.CORSOrigin))
	s.router.Use(loggingMiddleware(s.deps.Logger))
	s.router.Use(recoveryMiddleware(s.deps.Logger))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Post("/sync-user", s.handleSyncUser)
		r.Get("/get-user/{clerkID}", s.handleGetUser)
		r.Delete("/delete-user/{clerkID}", s.handleDeleteUser)
		r.Get("/user-data/{clerkID}", s.handleGetUserData)
		r.Post("/user-data/{clerkID}", s.handleSetUserData)
		r.Put("/user-data/{clerkID}", s.handleSetUserData)

		r.Post("/upload-papers", s.handleUploadPapers)
		r.Post("/generate-questions", s.handleGenerateQuestions)
		r.Get("/download-questions/{id}", s.handleDownloadQuestions)
		r.Get("/study-plan/{id}", s.handleStudyPlan)

		r.Post("/upload-doc", s.handleUploadDoc)
		r.Post("/edit-doc", s.handleEditDoc)
		r.Get("/download-doc/{id}", s.handleDownloadDoc)
	})

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics)
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": s.deps.PingMessage,
	})
}

type syncUserRequest struct {
	ClerkID   string `json:"clerk_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
}

func (s *Server) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ClerkID) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "clerk_id and email are required")
		return
	}

	fullName := req.FullName
	if fullName == "" {
		fullName = req.Name
	}

	user, err := s.deps.Users.Sync(r.Context(), services.SyncInput{
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		FullName:  fullName,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User synced successfully",
		"user":    userPayload(user),
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.GetByClerkID(r.Context(), chi.URLParam(r, "clerkID"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userPayload(user),
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Users.Delete(r.Context(), chi.URLParam(r, "clerkID"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User deleted successfully",
	})
}

func (s *Server) handleGetUserData(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.GetByClerkID(r.Context(), chi.URLParam(r, "clerkID"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := s.deps.Users.AllData(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func (s *Server) handleSetUserData(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.GetByClerkID(r.Context(), chi.URLParam(r, "clerkID"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "no data provided")
		return
	}

	for key, value := range body {
		if err := s.deps.Users.SetDatum(r.Context(), user.ID, key, stringifyValue(value)); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User data saved successfully",
	})
}

type paperFile struct {
	Filename string `json:"filename"`
	FilePath string `json:"filePath"`
}

func (s *Server) handleUploadPapers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []paperFile `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	papers := make([]models.Paper, 0, len(req.Files))
	for _, f := range req.Files {
		if strings.TrimSpace(f.Filename) == "" {
			continue
		}
		paper := s.deps.Papers.Add(f.Filename, f.FilePath, "Sample question paper content")
		papers = append(papers, *paper)
	}
	if len(papers) == 0 {
		writeError(w, http.StatusBadRequest, "no usable files provided")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d paper(s) uploaded successfully", len(papers)),
		"papers":  papers,
	})
}

type generateQuestionsRequest struct {
	Files    []paperFile `json:"files"`
	PaperIDs []string    `json:"paperIds"`
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req generateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var papers []models.Paper
	if len(req.Files) > 0 {
		for _, f := range req.Files {
			if strings.TrimSpace(f.Filename) == "" {
				continue
			}
			papers = append(papers, models.Paper{Filename: f.Filename, FilePath: f.FilePath})
		}
	} else {
		papers = s.deps.Papers.List(req.PaperIDs)
	}
	if len(papers) == 0 {
		writeError(w, http.StatusNotFound, "no papers found to process")
		return
	}

	var all []models.Question
	for _, paper := range papers {
		text, err := s.deps.Extractor.Extract(paper.FilePath, paper.Filename)
		if err != nil {
			// Registered stubs carry placeholder content when no real
			// file exists at the path.
			if paper.Content == "" {
				log.Printf("skipping %s: %v", paper.Filename, err)
				continue
			}
			text = paper.Content
		}

		trimmed := strings.TrimSpace(text)
		if len(trimmed) < 10 {
			log.Printf("skipping %s: too little extractable text (%d chars)", paper.Filename, len(trimmed))
			continue
		}
		if len(trimmed) < 50 {
			log.Printf("warning: %s has very little text (%d chars); results may be poor", paper.Filename, len(trimmed))
		}

		questions, err := s.deps.Generator.GenerateQuestions(r.Context(), text, paper.Filename)
		if err != nil {
			if errors.Is(err, services.ErrGenerationUnavailable) {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			log.Printf("generation failed for %s: %v", paper.Filename, err)
			continue
		}
		all = append(all, questions...)
	}

	if len(all) == 0 {
		writeError(w, http.StatusInternalServerError, "no questions could be generated from the provided papers")
		return
	}

	set := s.deps.Sets.Add(all)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"setId":       set.ID,
		"count":       len(set.Questions),
		"questions":   set.Questions,
		"generatedAt": set.GeneratedAt,
	})
}

func (s *Server) handleDownloadQuestions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	set, ok := s.deps.Sets.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "question set not found")
		return
	}

	data, err := s.deps.Exporter.RenderQuestionSetDOCX(set)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="exam_questions_%s.docx"`, id))
	_, _ = w.Write(data)
}

func (s *Server) handleStudyPlan(w http.ResponseWriter, r *http.Request) {
	set, ok := s.deps.Sets.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "question set not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"plan":    s.deps.Study.Plan(set),
	})
}

func (s *Server) handleUploadDoc(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	doc := s.deps.Docs.Create(req.Filename)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"documentId": doc.ID,
		"filename":   doc.Filename,
		"content":    doc.Content,
		"formatting": doc.Formatting,
	})
}

type editDocRequest struct {
	DocumentID string                  `json:"documentId"`
	Content    *string                 `json:"content"`
	Formatting *models.FormattingPatch `json:"formatting"`
}

func (s *Server) handleEditDoc(w http.ResponseWriter, r *http.Request) {
	var req editDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeError(w, http.StatusBadRequest, "documentId is required")
		return
	}

	doc, ok := s.deps.Docs.Update(req.DocumentID, req.Content, req.Formatting)
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"documentId": doc.ID,
		"preview":    contentPreview(doc.Content),
		"formatting": doc.Formatting,
	})
}

func (s *Server) handleDownloadDoc(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.deps.Docs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "docx"
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "docx":
		data, err = s.deps.Exporter.RenderDOCX(doc)
		contentType = docxContentType
	case "pdf":
		data, err = s.deps.Exporter.RenderPDF(doc)
		contentType = "application/pdf"
	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	base := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	if base == "" {
		base = "document"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_edited.%s"`, base, format))
	_, _ = w.Write(data)
}

func userPayload(u *models.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"clerk_id":   u.ClerkID,
		"email":      u.Email,
		"first_name": nullString(u.FirstName),
		"last_name":  nullString(u.LastName),
		"full_name":  nullString(u.FullName),
		"image_url":  nullString(u.ImageURL),
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func nullString(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}

// stringifyValue flattens a decoded JSON value into the string form stored
// in user_data. Non-scalar values keep their JSON encoding.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

const previewLimit = 500

func contentPreview(content string) string {
	if len(content) <= previewLimit {
		return content
	}
	return content[:previewLimit] + "..."
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
