package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"licensetracker/internal/models"
	"licensetracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestMasterDataHandlers(t *testing.T) {
	repo := new(MockMasterDataRepository)
	h := NewMasterDataHandlers(repo, zap.NewNop())

	e := newTestEcho()
	e.GET("/companies", h.ListCompanies)
	e.POST("/companies", h.CreateCompany)
	e.PUT("/companies/:id", h.UpdateCompany)
	e.POST("/tags", h.CreateTag)
	e.DELETE("/tags/:id", h.DeleteTag)
	e.PUT("/scopes/:id", h.UpdateScope)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, newRequest(method, target, body))
		return rec
	}

	t.Run("list companies", func(t *testing.T) {
		repo.On("ListCompanies", mock.Anything).Return([]*models.Company{{ID: uuid.New(), Name: "Siam Foods"}}, nil).Once()

		rec := do(http.MethodGet, "/companies", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Siam Foods")
	})

	t.Run("create company trims name", func(t *testing.T) {
		repo.On("CreateCompany", mock.Anything, mock.MatchedBy(func(c *models.Company) bool {
			return c.Name == "Siam Foods"
		})).Return(nil).Once()

		rec := do(http.MethodPost, "/companies", `{"name":"  Siam Foods "}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("create company requires name", func(t *testing.T) {
		rec := do(http.MethodPost, "/companies", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update company not found", func(t *testing.T) {
		id := uuid.New()
		repo.On("UpdateCompany", mock.Anything, mock.MatchedBy(func(c *models.Company) bool {
			return c.ID == id
		})).Return(repositories.ErrNotFound).Once()

		rec := do(http.MethodPut, "/companies/"+id.String(), `{"name":"Renamed"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("duplicate tag", func(t *testing.T) {
		repo.On("CreateTag", mock.Anything, mock.Anything).
			Return(errors.Wrap(repositories.ErrDuplicate, "tags_name_key")).Once()

		rec := do(http.MethodPost, "/tags", `{"name":"DOA"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete tag", func(t *testing.T) {
		id := uuid.New()
		repo.On("DeleteTag", mock.Anything, id).Return(nil).Once()

		assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/tags/"+id.String(), "").Code)
		assert.Equal(t, http.StatusBadRequest, do(http.MethodDelete, "/tags/nope", "").Code)
	})

	t.Run("update scope", func(t *testing.T) {
		id := uuid.New()
		repo.On("UpdateScope", mock.Anything, mock.MatchedBy(func(s *models.Scope) bool {
			return s.ID == id && s.StandardCode == "GMP" && s.Description != nil
		})).Return(nil).Once()

		rec := do(http.MethodPut, "/scopes/"+id.String(), `{"standard_code":"GMP","description":"Good Manufacturing Practice"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo.On("ListCompanies", mock.Anything).Return(nil, errors.New("connection reset")).Once()

		rec := do(http.MethodGet, "/companies", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	repo.AssertExpectations(t)
}
