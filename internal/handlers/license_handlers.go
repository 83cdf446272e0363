package handlers

import (
	"net/http"
	"strings"
	"time"

	"licensetracker/internal/models"
	"licensetracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultPageSize    = 50
	maxPageSize        = 200
	defaultHistorySize = 50
)

// LicenseHandlers handles license register HTTP requests
type LicenseHandlers struct {
	licenseRepo repositories.LicenseRepository
	logRepo     repositories.NotificationLogRepository
	logger      *zap.Logger
}

// NewLicenseHandlers creates a new license handlers instance
func NewLicenseHandlers(licenseRepo repositories.LicenseRepository, logRepo repositories.NotificationLogRepository, logger *zap.Logger) *LicenseHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LicenseHandlers{
		licenseRepo: licenseRepo,
		logRepo:     logRepo,
		logger:      logger,
	}
}

// ListLicensesRequest represents query parameters for listing licenses
type ListLicensesRequest struct {
	Status           string `query:"status"` // comma separated
	CompanyID        string `query:"company_id" validate:"omitempty,uuid"`
	TagID            string `query:"tag_id" validate:"omitempty,uuid"`
	ValidUntilBefore string `query:"valid_until_before" validate:"omitempty,datetime=2006-01-02"`
	Limit            int    `query:"limit" validate:"gte=0"`
	Offset           int    `query:"offset" validate:"gte=0"`
}

// LicenseRequest is the body of create and full update
type LicenseRequest struct {
	RegistrationNo         string  `json:"registration_no" validate:"required,max=100"`
	CompanyID              *string `json:"company_id" validate:"omitempty,uuid"`
	TagID                  *string `json:"tag_id" validate:"omitempty,uuid"`
	ScopeID                *string `json:"scope_id" validate:"omitempty,uuid"`
	CertificationAuthority *string `json:"certification_authority" validate:"omitempty,max=255"`
	EffectiveDate          *string `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil             string  `json:"valid_until" validate:"required,datetime=2006-01-02"`
	Status                 string  `json:"status" validate:"omitempty,oneof=Active Inactive Pending"`
	Remark                 *string `json:"remark"`
}

// ListLicenses returns licenses ordered by valid_until with joined display names
func (h *LicenseHandlers) ListLicenses(c echo.Context) error {
	var req ListLicensesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.Limit == 0 {
		req.Limit = defaultPageSize
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	filter := &models.LicenseFilter{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		for _, s := range strings.Split(req.Status, ",") {
			status := models.LicenseStatus(strings.TrimSpace(s))
			if !status.Valid() {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid status filter")
			}
			filter.StatusOneOf = append(filter.StatusOneOf, status)
		}
	}
	filter.CompanyID = parseOptionalUUID(req.CompanyID)
	filter.TagID = parseOptionalUUID(req.TagID)
	if req.ValidUntilBefore != "" {
		bound, _ := time.Parse(models.DateLayout, req.ValidUntilBefore)
		filter.ValidUntilBefore = &bound
	}

	licenses, err := h.licenseRepo.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("failed to list licenses", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list licenses")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"licenses": licenses,
		"limit":    req.Limit,
		"offset":   req.Offset,
	})
}

// GetLicense returns a single license
func (h *LicenseHandlers) GetLicense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid license ID")
	}

	license, err := h.licenseRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.repoError(err, "get")
	}

	return c.JSON(http.StatusOK, license)
}

// CreateLicense registers a new license
func (h *LicenseHandlers) CreateLicense(c echo.Context) error {
	var req LicenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	license, err := req.toLicense()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.warnOnInvertedWindow(license)

	if err := h.licenseRepo.Create(c.Request().Context(), license); err != nil {
		return h.repoError(err, "create")
	}

	return c.JSON(http.StatusCreated, license)
}

// UpdateLicense replaces every editable field of a license
func (h *LicenseHandlers) UpdateLicense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid license ID")
	}

	var req LicenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	license, err := req.toLicense()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	license.ID = id
	h.warnOnInvertedWindow(license)

	if err := h.licenseRepo.Update(c.Request().Context(), license); err != nil {
		return h.repoError(err, "update")
	}

	return c.JSON(http.StatusOK, license)
}

// DeleteLicense removes a license
func (h *LicenseHandlers) DeleteLicense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid license ID")
	}

	if err := h.licenseRepo.Delete(c.Request().Context(), id); err != nil {
		return h.repoError(err, "delete")
	}

	return c.NoContent(http.StatusNoContent)
}

// ListNotifications returns the reminder history of one license, newest first
func (h *LicenseHandlers) ListNotifications(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid license ID")
	}

	var req struct {
		Limit int `query:"limit"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	if req.Limit <= 0 || req.Limit > maxPageSize {
		req.Limit = defaultHistorySize
	}

	entries, err := h.logRepo.ListByLicense(c.Request().Context(), id, req.Limit)
	if err != nil {
		h.logger.Error("failed to list notification history", zap.String("license_id", id.String()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list notifications")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": entries,
	})
}

func (h *LicenseHandlers) repoError(err error, op string) error {
	if errors.Is(err, repositories.ErrLicenseNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "License not found")
	}
	if errors.Is(err, repositories.ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, "Registration number already exists")
	}
	if errors.Is(err, repositories.ErrInvalidReference) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown company, tag or scope")
	}
	h.logger.Error("license repository failure", zap.String("op", op), zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to "+op+" license")
}

// warnOnInvertedWindow logs licenses whose effective date is after expiry.
// They are stored as given.
func (h *LicenseHandlers) warnOnInvertedWindow(license *models.License) {
	if license.HasInvertedWindow() {
		h.logger.Warn("license effective date is after valid_until",
			zap.String("registration_no", license.RegistrationNo),
			zap.Time("effective_date", *license.EffectiveDate),
			zap.Time("valid_until", license.ValidUntil),
		)
	}
}

func (r *LicenseRequest) toLicense() (*models.License, error) {
	validUntil, err := time.Parse(models.DateLayout, r.ValidUntil)
	if err != nil {
		return nil, errors.New("valid_until must be YYYY-MM-DD")
	}

	license := &models.License{
		RegistrationNo:         strings.TrimSpace(r.RegistrationNo),
		CertificationAuthority: r.CertificationAuthority,
		ValidUntil:             validUntil,
		Status:                 models.LicenseStatusActive,
		Remark:                 r.Remark,
	}
	if r.Status != "" {
		license.Status = models.LicenseStatus(r.Status)
	}
	if r.EffectiveDate != nil && *r.EffectiveDate != "" {
		effective, err := time.Parse(models.DateLayout, *r.EffectiveDate)
		if err != nil {
			return nil, errors.New("effective_date must be YYYY-MM-DD")
		}
		license.EffectiveDate = &effective
	}
	if r.CompanyID != nil {
		license.CompanyID = parseOptionalUUID(*r.CompanyID)
	}
	if r.TagID != nil {
		license.TagID = parseOptionalUUID(*r.TagID)
	}
	if r.ScopeID != nil {
		license.ScopeID = parseOptionalUUID(*r.ScopeID)
	}

	return license, nil
}

// parseOptionalUUID returns nil for an empty or malformed id; callers validate first
func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
