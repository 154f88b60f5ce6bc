package results

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edtrack/edtrack/internal/domain/orders"
	"github.com/edtrack/edtrack/internal/platform/auth"
	"github.com/edtrack/edtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterIngestRoutes mounts the delivery endpoint used by external
// lab and radiology systems. The group is expected to carry API key
// authentication rather than staff JWTs.
func (h *Handler) RegisterIngestRoutes(g *echo.Group) {
	g.POST("/results", h.IngestResult)
}

// RegisterRoutes mounts the staff-facing review and reconciliation
// endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RoleLabTech))
	readGroup.GET("/external-results", h.ListResults)
	readGroup.GET("/external-results/:id", h.GetResult)

	writeRoles := auth.RequireRole(auth.RoleDoctor, auth.RoleLabTech)
	api.POST("/external-results/:id/reconcile", h.ReconcileResult, writeRoles)
	api.POST("/external-results/:id/import", h.ImportResult, writeRoles)
}

type ingestResponse struct {
	Result  *ExternalResult `json:"result"`
	Outcome *Outcome        `json:"outcome"`
}

func (h *Handler) IngestResult(c echo.Context) error {
	var res ExternalResult
	if err := c.Bind(&res); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	stored, outcome, err := h.svc.Ingest(c.Request().Context(), &res)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateExternalID):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidResult):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, ingestResponse{Result: stored, Outcome: outcome})
}

func (h *Handler) ListResults(c echo.Context) error {
	pg := pagination.FromContext(c)
	var (
		items []*ExternalResult
		total int
		err   error
	)
	if c.QueryParam("imported") == "false" {
		items, total, err = h.svc.ListUnimported(c.Request().Context(), pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "external result not found")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ReconcileResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	outcome, err := h.svc.Reconcile(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "external result not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}

type importRequest struct {
	OrderID    uuid.UUID `json:"order_id"`
	ImportedBy string    `json:"imported_by"`
}

func (h *Handler) ImportResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.OrderID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}
	if req.ImportedBy == "" {
		req.ImportedBy = auth.UserNameFromContext(c.Request().Context())
	}
	res, err := h.svc.ManualImport(c.Request().Context(), id, req.OrderID, req.ImportedBy)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, orders.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrAlreadyImported), errors.Is(err, ErrOrderNotOpen):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, res)
}
