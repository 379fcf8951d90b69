package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/auto-report/internal/definition"
	"github.com/ziadkadry99/auto-report/internal/mail"
	"github.com/ziadkadry99/auto-report/internal/render"
	"github.com/ziadkadry99/auto-report/internal/report"
)

// mailRequest is the body of POST /api/mail. Subject and addresses fall
// back to the definition's mail block.
type mailRequest struct {
	Definition string   `json:"definition"`
	Subject    string   `json:"subject"`
	To         []string `json:"to"`
	From       []string `json:"from"`
}

// build parses and builds a definition with the server's renderer and a
// request-scoped observer.
func (s *Server) build(r *http.Request, def *definition.Definition) (*report.Report, error) {
	logger := zerolog.Ctx(r.Context())
	return definition.Build(def,
		report.WithRenderer(s.renderer),
		report.WithObserver(report.LogObserver(*logger)),
	)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	def, err := definition.Parse(body, s.cfg.BaseDir)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.build(r, def)
	if err != nil {
		writeError(w, err)
		return
	}
	fragment, err := rep.Generate()
	if err != nil {
		writeError(w, err)
		return
	}

	out := fragment
	if r.URL.Query().Get("fragment") != "1" {
		out, err = render.Document(fragment, render.DocumentOptions{Title: rep.Title()})
		if err != nil {
			writeError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

func (s *Server) handleMail(w http.ResponseWriter, r *http.Request) {
	var req mailRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	def, err := definition.Parse([]byte(req.Definition), s.cfg.BaseDir)
	if err != nil {
		writeError(w, err)
		return
	}
	if def.Mail != nil {
		if req.Subject == "" {
			req.Subject = def.Mail.Subject
		}
		if len(req.To) == 0 {
			req.To = def.Mail.To
		}
		if len(req.From) == 0 {
			req.From = def.Mail.From
		}
	}
	if req.Subject == "" {
		req.Subject = def.Title
	}
	if len(req.To) == 0 {
		http.Error(w, "at least one recipient is required", http.StatusBadRequest)
		return
	}

	rep, err := s.build(r, def)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rep.MailTo(r.Context(), s.outbox, req.Subject, req.To, req.From); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "sent",
		"subject": req.Subject,
		"to":      req.To,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	opts := render.DocumentOptions{Title: "Preview"}
	if s.hub != nil {
		opts.ReloadPath = "/ws"
	}

	fragment, title, err := s.renderFile(r, s.cfg.PreviewPath)
	status := http.StatusOK
	if err != nil {
		// Keep the reload script on error pages so fixing the file recovers.
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("file", s.cfg.PreviewPath).Msg("preview failed")
		fragment = fmt.Sprintf(`<pre class="error">%s</pre>`, html.EscapeString(err.Error()))
		status = http.StatusUnprocessableEntity
	} else if title != "" {
		opts.Title = title
	}

	page, err := render.Document(fragment, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	io.WriteString(w, page)
}

func (s *Server) renderFile(r *http.Request, path string) (fragment, title string, err error) {
	def, err := definition.Load(path)
	if err != nil {
		return "", "", err
	}
	if s.cfg.BaseDir != "" && definition.Within(s.cfg.BaseDir, path) {
		def.RootDir = s.cfg.BaseDir
	}
	rep, err := s.build(r, def)
	if err != nil {
		return "", "", err
	}
	fragment, err = rep.Generate()
	if err != nil {
		return "", "", err
	}
	return fragment, rep.Title(), nil
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, definition.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, report.ErrUnsupportedElementType):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, mail.ErrNoRecipients):
		status = http.StatusBadRequest
	case errors.Is(err, report.ErrNotFound), errors.Is(err, mail.ErrNotFound):
		status = http.StatusNotFound
	case isSendError(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isSendError(err error) bool {
	var se *mail.SendError
	return errors.As(err, &se)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
