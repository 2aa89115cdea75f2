package handler

import (
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *slog.Logger
}

func NewDashboardHandler(dashboard *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, summary)
}
