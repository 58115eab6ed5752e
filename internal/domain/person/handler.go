package person

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trustmedis/empi/internal/platform/auth"
	"github.com/trustmedis/empi/internal/platform/fhir"
	"github.com/trustmedis/empi/pkg/pagination"
)

// Handler exposes read access to Person identities. Persons are created and
// mutated only by link resolution, never directly through the API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	role := auth.RequireRole("admin", "registrar", "steward")

	g := api.Group("", role)
	g.GET("/persons", h.ListPersons)
	g.GET("/persons/:id", h.GetPerson)

	fg := fhirGroup.Group("", role)
	fg.GET("/Person", h.ListPersonsFHIR)
	fg.GET("/Person/:id", h.GetPersonFHIR)
}

func (h *Handler) GetPerson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPerson(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "person not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPersons(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListPersons(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

// ListPersonsFHIR handles GET /fhir/Person, returning a searchset Bundle
// with first/next/previous navigation links.
func (h *Handler) ListPersonsFHIR(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListPersons(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	entries := make([]map[string]interface{}, len(items))
	for i, p := range items {
		entries[i] = map[string]interface{}{"resource": p.ToFHIR()}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "searchset",
		"total":        total,
		"link":         params.FHIRLinks(c.Request().URL.Path, total),
		"entry":        entries,
	})
}

func (h *Handler) GetPersonFHIR(c echo.Context) error {
	p, err := h.svc.GetPersonByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Person", c.Param("id")))
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}
