package repositories

import (
	"context"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MasterDataRepository manages the lookup tables referenced by licenses
type MasterDataRepository interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	UpdateCompany(ctx context.Context, company *models.Company) error
	DeleteCompany(ctx context.Context, id uuid.UUID) error

	CreateTag(ctx context.Context, tag *models.Tag) error
	ListTags(ctx context.Context) ([]*models.Tag, error)
	UpdateTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, id uuid.UUID) error

	CreateScope(ctx context.Context, scope *models.Scope) error
	ListScopes(ctx context.Context) ([]*models.Scope, error)
	UpdateScope(ctx context.Context, scope *models.Scope) error
	DeleteScope(ctx context.Context, id uuid.UUID) error
}

type masterDataRepo struct {
	db Database
}

func NewMasterDataRepo(db Database) MasterDataRepository {
	return &masterDataRepo{db: db}
}

func (r *masterDataRepo) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	query := `
		INSERT INTO companies (id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, company.ID, company.Name).Scan(&company.CreatedAt)
	return translateWriteError(err, "insert company")
}

func (r *masterDataRepo) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list companies")
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		company := &models.Company{}
		if err := rows.Scan(&company.ID, &company.Name, &company.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan company")
		}
		companies = append(companies, company)
	}
	return companies, errors.Wrap(rows.Err(), "iterate companies")
}

func (r *masterDataRepo) UpdateCompany(ctx context.Context, company *models.Company) error {
	return r.updateByID(ctx, `UPDATE companies SET name = $2 WHERE id = $1`, company.ID, company.Name)
}

func (r *masterDataRepo) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, `DELETE FROM companies WHERE id = $1`, id)
}

func (r *masterDataRepo) CreateTag(ctx context.Context, tag *models.Tag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	query := `
		INSERT INTO tags (id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, tag.ID, tag.Name).Scan(&tag.CreatedAt)
	return translateWriteError(err, "insert tag")
}

func (r *masterDataRepo) ListTags(ctx context.Context) ([]*models.Tag, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list tags")
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan tag")
		}
		tags = append(tags, tag)
	}
	return tags, errors.Wrap(rows.Err(), "iterate tags")
}

func (r *masterDataRepo) UpdateTag(ctx context.Context, tag *models.Tag) error {
	return r.updateByID(ctx, `UPDATE tags SET name = $2 WHERE id = $1`, tag.ID, tag.Name)
}

func (r *masterDataRepo) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, `DELETE FROM tags WHERE id = $1`, id)
}

func (r *masterDataRepo) CreateScope(ctx context.Context, scope *models.Scope) error {
	if scope.ID == uuid.Nil {
		scope.ID = uuid.New()
	}
	query := `
		INSERT INTO scopes (id, standard_code, description, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, scope.ID, scope.StandardCode, scope.Description).Scan(&scope.CreatedAt)
	return translateWriteError(err, "insert scope")
}

func (r *masterDataRepo) ListScopes(ctx context.Context) ([]*models.Scope, error) {
	rows, err := r.db.Query(ctx, `SELECT id, standard_code, description, created_at FROM scopes ORDER BY standard_code ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list scopes")
	}
	defer rows.Close()

	var scopes []*models.Scope
	for rows.Next() {
		scope := &models.Scope{}
		if err := rows.Scan(&scope.ID, &scope.StandardCode, &scope.Description, &scope.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan scope")
		}
		scopes = append(scopes, scope)
	}
	return scopes, errors.Wrap(rows.Err(), "iterate scopes")
}

func (r *masterDataRepo) UpdateScope(ctx context.Context, scope *models.Scope) error {
	return r.updateByID(ctx, `UPDATE scopes SET standard_code = $2, description = $3 WHERE id = $1`,
		scope.ID, scope.StandardCode, scope.Description)
}

func (r *masterDataRepo) DeleteScope(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, `DELETE FROM scopes WHERE id = $1`, id)
}

func (r *masterDataRepo) deleteByID(ctx context.Context, query string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *masterDataRepo) updateByID(ctx context.Context, query string, id uuid.UUID, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return translateWriteError(err, "update "+id.String())
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
