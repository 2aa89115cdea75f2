package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/export"
	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

// EntityHandler exposes list/get/create/update/delete for one resource.
type EntityHandler[T any, PT interface {
	*T
	domain.Record
}] struct {
	svc    *service.EntityService[T, PT]
	logger *slog.Logger
	now    func() time.Time
}

func NewEntityHandler[T any, PT interface {
	*T
	domain.Record
}](svc *service.EntityService[T, PT], logger *slog.Logger) *EntityHandler[T, PT] {
	return &EntityHandler[T, PT]{svc: svc, logger: logger, now: time.Now}
}

func (h *EntityHandler[T, PT]) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []T{}
	}
	response.Paginated(w, r, items, response.Page{
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func (h *EntityHandler[T, PT]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, rec)
}

func (h *EntityHandler[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	rec := PT(new(T))
	if err := decodeJSON(r, rec); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	created, err := h.svc.Create(r.Context(), rec)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, h.svc.Resource()+".create", "id", created.GetID())
	response.JSON(w, r, http.StatusCreated, created)
}

// Update decodes the payload over the stored row, so omitted fields keep
// their current values.
func (h *EntityHandler[T, PT]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	updated, err := h.svc.Update(r.Context(), id, func(rec PT) error {
		return unmarshalBody(body, rec)
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, h.svc.Resource()+".update", "id", id)
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *EntityHandler[T, PT]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, h.svc.Resource()+".delete", "id", id)
	response.JSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// Export streams every row matching the list filters as a CSV download.
func (h *EntityHandler[T, PT]) Export(columns []export.Column[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseListQuery(r.URL.Query())
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		rows, err := h.svc.Export(r.Context(), q)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		name := export.FileName(h.svc.Resource(), h.now())
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if err := export.Write(w, columns, rows); err != nil {
			h.logger.ErrorContext(r.Context(), "csv export write failed", "resource", h.svc.Resource(), "error", err)
			return
		}
		observability.Audit(r, h.svc.Resource()+".export", "rows", len(rows))
	}
}
