package handlers

import (
	"context"
	"net/http"
	"strings"

	"licensetracker/internal/models"
	"licensetracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MasterDataHandlers manages companies, tags and scopes
type MasterDataHandlers struct {
	repo   repositories.MasterDataRepository
	logger *zap.Logger
}

func NewMasterDataHandlers(repo repositories.MasterDataRepository, logger *zap.Logger) *MasterDataHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterDataHandlers{repo: repo, logger: logger}
}

type NamedRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type ScopeRequest struct {
	StandardCode string  `json:"standard_code" validate:"required,max=100"`
	Description  *string `json:"description"`
}

func (h *MasterDataHandlers) ListCompanies(c echo.Context) error {
	companies, err := h.repo.ListCompanies(c.Request().Context())
	if err != nil {
		return h.repoError(err, "list companies")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"companies": companies})
}

func (h *MasterDataHandlers) CreateCompany(c echo.Context) error {
	var req NamedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	company := &models.Company{Name: strings.TrimSpace(req.Name)}
	if err := h.repo.CreateCompany(c.Request().Context(), company); err != nil {
		return h.repoError(err, "create company")
	}
	return c.JSON(http.StatusCreated, company)
}

func (h *MasterDataHandlers) UpdateCompany(c echo.Context) error {
	id, err := parseIDParam(c, "company")
	if err != nil {
		return err
	}
	var req NamedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	company := &models.Company{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := h.repo.UpdateCompany(c.Request().Context(), company); err != nil {
		return h.repoError(err, "update company")
	}
	return c.JSON(http.StatusOK, company)
}

func (h *MasterDataHandlers) DeleteCompany(c echo.Context) error {
	return h.deleteByParam(c, "company", h.repo.DeleteCompany)
}

func (h *MasterDataHandlers) ListTags(c echo.Context) error {
	tags, err := h.repo.ListTags(c.Request().Context())
	if err != nil {
		return h.repoError(err, "list tags")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tags": tags})
}

func (h *MasterDataHandlers) CreateTag(c echo.Context) error {
	var req NamedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tag := &models.Tag{Name: strings.TrimSpace(req.Name)}
	if err := h.repo.CreateTag(c.Request().Context(), tag); err != nil {
		return h.repoError(err, "create tag")
	}
	return c.JSON(http.StatusCreated, tag)
}

func (h *MasterDataHandlers) UpdateTag(c echo.Context) error {
	id, err := parseIDParam(c, "tag")
	if err != nil {
		return err
	}
	var req NamedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tag := &models.Tag{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := h.repo.UpdateTag(c.Request().Context(), tag); err != nil {
		return h.repoError(err, "update tag")
	}
	return c.JSON(http.StatusOK, tag)
}

func (h *MasterDataHandlers) DeleteTag(c echo.Context) error {
	return h.deleteByParam(c, "tag", h.repo.DeleteTag)
}

func (h *MasterDataHandlers) ListScopes(c echo.Context) error {
	scopes, err := h.repo.ListScopes(c.Request().Context())
	if err != nil {
		return h.repoError(err, "list scopes")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"scopes": scopes})
}

func (h *MasterDataHandlers) CreateScope(c echo.Context) error {
	var req ScopeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	scope := &models.Scope{
		StandardCode: strings.TrimSpace(req.StandardCode),
		Description:  req.Description,
	}
	if err := h.repo.CreateScope(c.Request().Context(), scope); err != nil {
		return h.repoError(err, "create scope")
	}
	return c.JSON(http.StatusCreated, scope)
}

func (h *MasterDataHandlers) UpdateScope(c echo.Context) error {
	id, err := parseIDParam(c, "scope")
	if err != nil {
		return err
	}
	var req ScopeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	scope := &models.Scope{
		ID:           id,
		StandardCode: strings.TrimSpace(req.StandardCode),
		Description:  req.Description,
	}
	if err := h.repo.UpdateScope(c.Request().Context(), scope); err != nil {
		return h.repoError(err, "update scope")
	}
	return c.JSON(http.StatusOK, scope)
}

func (h *MasterDataHandlers) DeleteScope(c echo.Context) error {
	return h.deleteByParam(c, "scope", h.repo.DeleteScope)
}

func (h *MasterDataHandlers) deleteByParam(c echo.Context, kind string, del func(ctx context.Context, id uuid.UUID) error) error {
	id, err := parseIDParam(c, kind)
	if err != nil {
		return err
	}
	if err := del(c.Request().Context(), id); err != nil {
		return h.repoError(err, "delete "+kind)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MasterDataHandlers) repoError(err error, op string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Record not found")
	case errors.Is(err, repositories.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "Record already exists")
	}
	h.logger.Error("master data repository failure", zap.String("op", op), zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to "+op)
}

func parseIDParam(c echo.Context, kind string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+kind+" ID")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	return c.Validate(req)
}
