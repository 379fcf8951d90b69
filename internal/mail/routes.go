package mail

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts delivery endpoints under /api/deliveries on the given router.
func RegisterRoutes(r chi.Router, outbox *Outbox) {
	r.Route("/api/deliveries", func(r chi.Router) {
		r.Get("/", handleList(outbox.Store()))
		r.Get("/pending", handlePending(outbox.Store()))
		r.Get("/{id}", handleGetByID(outbox.Store()))
		r.Post("/{id}/retry", handleRetry(outbox))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := ListFilter{}

		if v := q.Get("status"); v != "" {
			for _, s := range strings.Split(v, ",") {
				filter.Status = append(filter.Status, Status(strings.TrimSpace(s)))
			}
		}
		if v := q.Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.Since = t
			}
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		deliveries, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, nonNil(deliveries))
	}
}

func handlePending(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveries, err := store.GetPending(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, nonNil(deliveries))
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		d, err := store.GetByID(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, d)
	}
}

func handleRetry(outbox *Outbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		d, err := outbox.Retry(r.Context(), id)
		var se *SendError
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadySent):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.As(err, &se):
			// The attempt was recorded; report it alongside the failure.
			writeJSON(w, http.StatusBadGateway, d)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, d)
		}
	}
}

func nonNil(ds []Delivery) []Delivery {
	if ds == nil {
		return []Delivery{}
	}
	return ds
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
