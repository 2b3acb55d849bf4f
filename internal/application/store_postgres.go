package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"benefit-gateway/internal/application/crypto"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// PostgresStore persists applications in PostgreSQL. The application
// payload column is sealed through the codec on write and opened on
// read; rows written before encryption was enabled are returned as-is.
type PostgresStore struct {
	db    *sql.DB
	codec *crypto.Codec
}

// NewPostgres constructs the store. A nil codec stores payloads as
// plain JSON.
func NewPostgres(db *sql.DB, codec *crypto.Codec) *PostgresStore {
	return &PostgresStore{db: db, codec: codec}
}

const applicationColumns = `
	id, benefit_id, customer_id, bap_id, transaction_id, status,
	order_id, remark, application_data, eligibility_status,
	eligibility_result, eligibility_checked_at, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, app *Application) error {
	data, err := s.sealData(app.ApplicationData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		app.ID,
		app.BenefitID,
		app.CustomerID,
		app.BapID,
		app.TransactionID,
		app.Status,
		nullString(app.OrderID),
		app.Remark,
		data,
		app.EligibilityStatus,
		nullJSON(app.EligibilityResult),
		nullTime(app.EligibilityCheckedAt),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) Find(ctx context.Context, f Filter) (*Application, error) {
	var conds []string
	var args []any
	if f.OrderID != "" {
		args = append(args, f.OrderID)
		conds = append(conds, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if f.BenefitID != "" {
		args = append(args, f.BenefitID)
		conds = append(conds, fmt.Sprintf("benefit_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty application filter")
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE ` +
		strings.Join(conds, " AND ") + ` LIMIT 1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (*Application, error) {
	sets := []string{"updated_at = now()"}
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.OrderID != nil {
		add("order_id", *patch.OrderID)
	}
	if patch.Remark != nil {
		add("remark", *patch.Remark)
	}
	if patch.ApplicationData != nil {
		data, err := s.sealData(patch.ApplicationData)
		if err != nil {
			return nil, err
		}
		add("application_data", data)
	}
	if patch.EligibilityStatus != nil {
		add("eligibility_status", *patch.EligibilityStatus)
	}
	if patch.EligibilityResult != nil {
		add("eligibility_result", nullJSON(patch.EligibilityResult))
	}
	if patch.EligibilityCheckedAt != nil {
		add("eligibility_checked_at", *patch.EligibilityCheckedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE applications SET %s WHERE id = $%d RETURNING `+applicationColumns,
		strings.Join(sets, ", "), len(args),
	)
	return s.scanOne(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) ListByBenefit(ctx context.Context, benefitID string) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE benefit_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, benefitID)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

func (s *PostgresStore) CountByBenefit(ctx context.Context, benefitID string) (StatusCounts, error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'approved'),
			count(*) FILTER (WHERE status = 'rejected')
		FROM applications
		WHERE benefit_id = $1
	`
	var counts StatusCounts
	err := s.db.QueryRowContext(ctx, query, benefitID).Scan(
		&counts.Total, &counts.Pending, &counts.Approved, &counts.Rejected,
	)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count applications: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) ListRecheckCandidates(ctx context.Context, staleness time.Duration, limit int) ([]Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE eligibility_status NOT IN ('eligible', 'ineligible')
		  AND eligibility_result IS NULL
		  AND (eligibility_checked_at IS NULL OR eligibility_checked_at < $1)
		ORDER BY created_at
		LIMIT $2
	`
	cutoff := time.Now().UTC().Add(-staleness)
	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query recheck candidates: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

func (s *PostgresStore) CreateFile(ctx context.Context, f *File) error {
	query := `
		INSERT INTO application_files (id, application_id, storage, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, f.ID, f.ApplicationID, f.Storage, f.FilePath, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert application file: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFiles(ctx context.Context, applicationID string) ([]File, error) {
	query := `
		SELECT id, application_id, storage, file_path, created_at
		FROM application_files
		WHERE application_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("query application files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.ApplicationID, &f.Storage, &f.FilePath, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan application file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application files: %w", err)
	}
	return files, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (*Application, error) {
	app, err := s.scanApplication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, err
	}
	return app, nil
}

func (s *PostgresStore) scanMany(rows *sql.Rows) ([]Application, error) {
	var apps []Application
	for rows.Next() {
		app, err := s.scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

func (s *PostgresStore) scanApplication(row rowScanner) (*Application, error) {
	var (
		app       Application
		orderID   sql.NullString
		data      string
		result    []byte
		checkedAt sql.NullTime
	)
	err := row.Scan(
		&app.ID,
		&app.BenefitID,
		&app.CustomerID,
		&app.BapID,
		&app.TransactionID,
		&app.Status,
		&orderID,
		&app.Remark,
		&data,
		&app.EligibilityStatus,
		&result,
		&checkedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}

	app.OrderID = orderID.String
	if checkedAt.Valid {
		t := checkedAt.Time
		app.EligibilityCheckedAt = &t
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &app.EligibilityResult); err != nil {
			return nil, fmt.Errorf("decode eligibility result: %w", err)
		}
	}

	app.ApplicationData, err = s.openData(data)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *PostgresStore) sealData(data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode application data: %w", err)
	}
	if s.codec == nil {
		return string(raw), nil
	}
	sealed, err := s.codec.Encrypt(raw)
	if err != nil {
		return "", fmt.Errorf("encrypt application data: %w", err)
	}
	return sealed, nil
}

func (s *PostgresStore) openData(value string) (map[string]any, error) {
	raw := []byte(value)
	if crypto.IsEncrypted(value) {
		if s.codec == nil {
			return nil, dErrors.New(dErrors.CodeInternal, "encrypted payload but no encryption key configured")
		}
		var err error
		raw, err = s.codec.Decrypt(value)
		if err != nil {
			return nil, fmt.Errorf("decrypt application data: %w", err)
		}
	}
	var data map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode application data: %w", err)
		}
	}
	return data, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullJSON(value map[string]any) any {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return raw
}
