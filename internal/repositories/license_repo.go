package repositories

import (
	"context"
	"fmt"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type LicenseRepository interface {
	Create(ctx context.Context, license *models.License) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	Update(ctx context.Context, license *models.License) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.LicenseFilter) ([]*models.License, error)

	// ListExpiring returns licenses with valid_until on or before the filter bound,
	// joined with company and tag names. Used by the notification run.
	ListExpiring(ctx context.Context, filter models.LicenseFilter) ([]*models.License, error)
}

type licenseRepo struct {
	db Database
}

func NewLicenseRepo(db Database) LicenseRepository {
	return &licenseRepo{db: db}
}

const licenseSelect = `
		SELECT l.id, l.registration_no, l.company_id, l.tag_id, l.scope_id, l.certification_authority,
			l.effective_date, l.valid_until, l.status, l.remark, l.created_at, l.updated_at,
			c.name, t.name, s.standard_code, s.description
		FROM licenses l
		LEFT JOIN companies c ON c.id = l.company_id
		LEFT JOIN tags t ON t.id = l.tag_id
		LEFT JOIN scopes s ON s.id = l.scope_id
`

func scanLicense(row pgx.Row) (*models.License, error) {
	license := &models.License{}
	var status string
	err := row.Scan(
		&license.ID,
		&license.RegistrationNo,
		&license.CompanyID,
		&license.TagID,
		&license.ScopeID,
		&license.CertificationAuthority,
		&license.EffectiveDate,
		&license.ValidUntil,
		&status,
		&license.Remark,
		&license.CreatedAt,
		&license.UpdatedAt,
		&license.CompanyName,
		&license.TagName,
		&license.ScopeCode,
		&license.ScopeDescription,
	)
	if err != nil {
		return nil, err
	}
	license.Status = models.LicenseStatus(status)
	return license, nil
}

func (r *licenseRepo) Create(ctx context.Context, license *models.License) error {
	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}

	query := `
		INSERT INTO licenses (id, registration_no, company_id, tag_id, scope_id, certification_authority, effective_date, valid_until, status, remark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		license.ID,
		license.RegistrationNo,
		license.CompanyID,
		license.TagID,
		license.ScopeID,
		license.CertificationAuthority,
		license.EffectiveDate,
		license.ValidUntil,
		string(license.Status),
		license.Remark,
	)
	return translateWriteError(err, "insert license")
}

func (r *licenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	query := licenseSelect + `		WHERE l.id = $1`

	license, err := scanLicense(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLicenseNotFound
		}
		return nil, errors.Wrapf(err, "get license %s", id)
	}
	return license, nil
}

func (r *licenseRepo) Update(ctx context.Context, license *models.License) error {
	query := `
		UPDATE licenses
		SET registration_no = $1, company_id = $2, tag_id = $3, scope_id = $4, certification_authority = $5,
			effective_date = $6, valid_until = $7, status = $8, remark = $9, updated_at = NOW()
		WHERE id = $10
	`
	tag, err := r.db.Exec(ctx, query,
		license.RegistrationNo,
		license.CompanyID,
		license.TagID,
		license.ScopeID,
		license.CertificationAuthority,
		license.EffectiveDate,
		license.ValidUntil,
		string(license.Status),
		license.Remark,
		license.ID,
	)
	if err != nil {
		return translateWriteError(err, "update license "+license.ID.String())
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (r *licenseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM licenses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete license %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (r *licenseRepo) List(ctx context.Context, filter *models.LicenseFilter) ([]*models.License, error) {
	if filter == nil {
		filter = &models.LicenseFilter{}
	}

	query := licenseSelect + `		WHERE 1 = 1`
	args := []any{}
	argIdx := 0

	if filter.ValidUntilBefore != nil {
		argIdx++
		query += fmt.Sprintf(" AND l.valid_until <= $%d", argIdx)
		args = append(args, *filter.ValidUntilBefore)
	}

	if len(filter.StatusOneOf) > 0 {
		argIdx++
		query += fmt.Sprintf(" AND l.status = ANY($%d)", argIdx)
		args = append(args, statusStrings(filter.StatusOneOf))
	}

	if filter.CompanyID != nil {
		argIdx++
		query += fmt.Sprintf(" AND l.company_id = $%d", argIdx)
		args = append(args, *filter.CompanyID)
	}

	if filter.TagID != nil {
		argIdx++
		query += fmt.Sprintf(" AND l.tag_id = $%d", argIdx)
		args = append(args, *filter.TagID)
	}

	query += " ORDER BY l.valid_until ASC, l.registration_no ASC"

	if filter.Limit > 0 {
		argIdx++
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)

		argIdx++
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list licenses")
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan license")
		}
		licenses = append(licenses, license)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate licenses")
	}
	return licenses, nil
}

func (r *licenseRepo) ListExpiring(ctx context.Context, filter models.LicenseFilter) ([]*models.License, error) {
	if filter.ValidUntilBefore == nil {
		return nil, errors.New("list expiring licenses: valid_until bound is required")
	}
	filter.Limit = 0
	filter.Offset = 0
	return r.List(ctx, &filter)
}

func statusStrings(statuses []models.LicenseStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
