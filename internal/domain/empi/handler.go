package empi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trustmedis/empi/internal/platform/auth"
	"github.com/trustmedis/empi/internal/platform/fhir"
	"github.com/trustmedis/empi/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	steward := auth.RequireRole("admin", "steward")
	registrar := auth.RequireRole("admin", "registrar", "steward")

	g := api.Group("/empi", registrar)
	g.POST("/patients/:id/links", h.ResolvePatient)
	g.GET("/persons/:id/links", h.LinksForPerson)
	g.GET("/targets/:id/links", h.LinksForTarget)

	fg := fhirGroup.Group("", registrar)
	fg.POST("/Patient/:id/$empi-link", h.ResolvePatientFHIR)

	sg := api.Group("/empi", steward)
	sg.PUT("/links", h.SetManualLink)
	sg.GET("/duplicates", h.ListDuplicates)
	sg.POST("/duplicates/:id/resolve", h.ResolveDuplicate)
}

// ResolvePatient runs automatic link resolution for one Patient.
func (h *Handler) ResolvePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := h.svc.UpdateLinksForPatient(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInactivePatient):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrContention):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, res)
}

// ResolvePatientFHIR is the FHIR-flavored resolution operation. The id is
// the Patient's FHIR resource id rather than the row UUID.
func (h *Handler) ResolvePatientFHIR(c echo.Context) error {
	fhirID := c.Param("id")
	res, err := h.svc.UpdateLinksForPatientFHIR(c.Request().Context(), fhirID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInactivePatient):
			return c.JSON(http.StatusUnprocessableEntity, fhir.ErrorOutcome("patient is not active"))
		case errors.Is(err, ErrContention):
			return c.JSON(http.StatusConflict, fhir.ConflictOutcome("resolution conflicted with a concurrent update, retry"))
		case errors.Is(err, ErrPatientNotFound):
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", fhirID))
		default:
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
	}
	return c.JSON(http.StatusOK, res)
}

type manualLinkRequest struct {
	PersonID    uuid.UUID `json:"person_id"`
	TargetID    uuid.UUID `json:"target_id"`
	MatchResult string    `json:"match_result"`
}

// SetManualLink records a human match decision for one pair.
func (h *Handler) SetManualLink(c echo.Context) error {
	var req manualLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PersonID == uuid.Nil || req.TargetID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "person_id and target_id are required")
	}
	link, err := h.svc.SetManualLink(c.Request().Context(), req.PersonID, req.TargetID, MatchResult(req.MatchResult))
	if err != nil {
		if errors.Is(err, ErrContention) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, link.ToJSON())
}

func (h *Handler) LinksForPerson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	links, err := h.svc.LinksForPerson(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toJSONList(links))
}

func (h *Handler) LinksForTarget(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	links, err := h.svc.LinksForTarget(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toJSONList(links))
}

func (h *Handler) ListDuplicates(c echo.Context) error {
	params := pagination.FromContext(c)
	includeResolved := c.QueryParam("include_resolved") == "true"
	items, total, err := h.svc.Duplicates(c.Request().Context(), includeResolved, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ResolveDuplicate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.ResolveDuplicate(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrDuplicateNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func toJSONList(links []*Link) []LinkJSON {
	out := make([]LinkJSON, 0, len(links))
	for _, l := range links {
		out = append(out, l.ToJSON())
	}
	return out
}
