package encounter

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edtrack/edtrack/internal/platform/auth"
	"github.com/edtrack/edtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole(auth.RoleDoctor, auth.RoleNurse)
	nurseOnly := auth.RequireRole(auth.RoleNurse)
	doctorOnly := auth.RequireRole(auth.RoleDoctor)
	pharmacy := auth.RequireRole(auth.RolePharmacist)

	api.POST("/patients/:id/triage", h.RecordTriage, nurseOnly)
	api.GET("/patients/:id/triage", h.GetTriage, clinical)

	api.POST("/patients/:id/assessment", h.RecordAssessment, nurseOnly)
	api.PUT("/patients/:id/assessment", h.AmendAssessment, nurseOnly)
	api.GET("/patients/:id/assessment", h.GetAssessment, clinical)

	api.POST("/patients/:id/examinations", h.RecordExamination, doctorOnly)
	api.GET("/patients/:id/examinations", h.ListExaminations, clinical)

	api.POST("/patients/:id/prescriptions", h.Prescribe, doctorOnly)
	api.GET("/patients/:id/prescriptions", h.ListPrescriptions, auth.RequireRole(auth.RoleDoctor, auth.RoleNurse, auth.RolePharmacist))
	api.GET("/prescriptions/pending", h.ListPendingPrescriptions, pharmacy)
	api.POST("/prescriptions/:id/dispense", h.Dispense, pharmacy)

	api.POST("/patients/:id/disposition", h.RecordDisposition, doctorOnly)
	api.GET("/patients/:id/disposition", h.GetDisposition, clinical)
	api.POST("/patients/:id/disposition/complete", h.CompleteDisposition, clinical)
}

func patientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

// --- Triage ---

func (h *Handler) RecordTriage(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var t Triage
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.PatientID = pid
	if t.TriagedBy == "" {
		t.TriagedBy = auth.UserNameFromContext(c.Request().Context())
	}
	if err := h.svc.RecordTriage(c.Request().Context(), &t); err != nil {
		if errors.Is(err, ErrTriageExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTriage(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.TriageForPatient(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "triage not found")
	}
	return c.JSON(http.StatusOK, t)
}

// --- Assessment ---

func (h *Handler) RecordAssessment(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var a Assessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.PatientID = pid
	if a.AssessedBy == "" {
		a.AssessedBy = auth.UserNameFromContext(c.Request().Context())
	}
	if err := h.svc.RecordAssessment(c.Request().Context(), &a); err != nil {
		if errors.Is(err, ErrAssessmentExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) AmendAssessment(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var a Assessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if a.AssessedBy == "" {
		a.AssessedBy = auth.UserNameFromContext(c.Request().Context())
	}
	updated, err := h.svc.AmendAssessment(c.Request().Context(), pid, &a)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.AssessmentForPatient(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	return c.JSON(http.StatusOK, a)
}

// --- Examination ---

func (h *Handler) RecordExamination(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var e Examination
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.PatientID = pid
	if e.DoctorName == "" {
		e.DoctorName = auth.UserNameFromContext(c.Request().Context())
	}
	if err := h.svc.RecordExamination(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListExaminations(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ExaminationsForPatient(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// --- Prescription ---

func (h *Handler) Prescribe(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.PatientID = pid
	if p.PrescribedBy == "" {
		p.PrescribedBy = auth.UserNameFromContext(c.Request().Context())
	}
	if err := h.svc.Prescribe(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.PrescriptionsForPatient(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPendingPrescriptions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.PendingPrescriptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type dispenseRequest struct {
	DispensedBy string `json:"dispensed_by"`
}

func (h *Handler) Dispense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	var req dispenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DispensedBy == "" {
		req.DispensedBy = auth.UserNameFromContext(c.Request().Context())
	}
	p, err := h.svc.Dispense(c.Request().Context(), id, req.DispensedBy)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		case errors.Is(err, ErrAlreadyDispensed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, p)
}

// --- Disposition ---

func (h *Handler) RecordDisposition(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	var d Disposition
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.PatientID = pid
	if d.AuthorizedBy == "" {
		d.AuthorizedBy = auth.UserNameFromContext(c.Request().Context())
	}
	if err := h.svc.RecordDisposition(c.Request().Context(), &d); err != nil {
		if errors.Is(err, ErrAlreadyDisposed) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDisposition(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.DispositionForPatient(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "disposition not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) CompleteDisposition(c echo.Context) error {
	pid, err := patientID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.CompleteDisposition(c.Request().Context(), pid)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "disposition not found")
		case errors.Is(err, ErrAlreadyFinalized):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, d)
}
