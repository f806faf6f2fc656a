package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hockeyunion/membership/internal/api/metrics"
	"github.com/hockeyunion/membership/internal/core/ports"
)

// ProfileHandler serves the profile table under /rest/v1/profiles.
type ProfileHandler struct {
	service ports.ProfileService
}

func NewProfileHandler(service ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Get returns one profile.
//
// @Summary      Get profile
// @Tags         profiles
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Profile id (identity subject)"
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rest/v1/profiles/{id} [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	profile, err := h.service.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Create inserts a profile. The id defaults to the caller.
//
// @Summary      Create profile
// @Tags         profiles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      createProfileRequest  true  "Profile"
// @Success      201   {object}  profileResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /rest/v1/profiles [post]
func (h *ProfileHandler) Create(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	var req createProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.service.Create(c.Request().Context(), caller, req.toDomain())
	if err != nil {
		return err
	}

	metrics.ProfileWritesTotal.WithLabelValues("create").Inc()
	return c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// Update applies a partial patch.
//
// @Summary      Update profile
// @Tags         profiles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Profile id"
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /rest/v1/profiles/{id} [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.service.Update(c.Request().Context(), caller, c.Param("id"), req.toDomain())
	if err != nil {
		return err
	}

	metrics.ProfileWritesTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// List pages through profiles. Admin only.
//
// @Summary      List profiles
// @Tags         profiles
// @Security     BearerAuth
// @Produce      json
// @Param        team_id  query     string  false  "Team filter"
// @Param        role     query     string  false  "Role filter"
// @Param        page     query     int     false  "1-based page"
// @Param        limit    query     int     false  "Page size (max 100)"
// @Success      200      {object}  listProfilesResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Router       /rest/v1/profiles [get]
func (h *ProfileHandler) List(c echo.Context) error {
	page, err := intQuery(c, "page")
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}

	result, err := h.service.List(c.Request().Context(), ports.ListProfilesFilter{
		TeamID: c.QueryParam("team_id"),
		Role:   c.QueryParam("role"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	resp := listProfilesResponse{
		Items: make([]profileResponse, 0, len(result.Items)),
		Total: result.Total,
		Page:  result.Page,
		Limit: result.Limit,
	}
	for _, p := range result.Items {
		resp.Items = append(resp.Items, toProfileResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
