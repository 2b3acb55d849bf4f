//go:build integration

package application_test

import (
	"context"
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"benefit-gateway/internal/application"
	"benefit-gateway/internal/application/crypto"
	pgplatform "benefit-gateway/internal/platform/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id TEXT PRIMARY KEY,
	benefit_id TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	bap_id TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	status TEXT NOT NULL,
	order_id TEXT,
	remark TEXT NOT NULL DEFAULT '',
	application_data TEXT NOT NULL,
	eligibility_status TEXT NOT NULL,
	eligibility_result JSONB,
	eligibility_checked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS application_files (
	id TEXT PRIMARY KEY,
	application_id TEXT NOT NULL REFERENCES applications(id),
	storage TEXT NOT NULL,
	file_path TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
	store     *application.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("benefit_gateway"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = pgplatform.Open(dsn)
	s.Require().NoError(err)

	_, err = s.db.ExecContext(ctx, schema)
	s.Require().NoError(err)

	codec, err := crypto.New(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	s.Require().NoError(err)
	s.store = application.NewPostgres(s.db, codec)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE application_files, applications`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newApplication() *application.Application {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &application.Application{
		ID:                uuid.NewString(),
		BenefitID:         "ben-1",
		CustomerID:        uuid.NewString(),
		BapID:             "bap.example.org",
		TransactionID:     uuid.NewString(),
		Status:            application.StatusPending,
		ApplicationData:   map[string]any{"firstName": "Asha", "class": "10"},
		EligibilityStatus: application.EligibilityUnknown,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *PostgresStoreSuite) TestRoundTripDecryptsPayload() {
	ctx := context.Background()
	app := s.newApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	// Raw column must not hold plaintext.
	var stored string
	s.Require().NoError(s.db.QueryRowContext(ctx,
		`SELECT application_data FROM applications WHERE id = $1`, app.ID).Scan(&stored))
	s.True(crypto.IsEncrypted(stored))
	s.NotContains(stored, "Asha")

	got, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal("Asha", got.ApplicationData["firstName"])
}

func (s *PostgresStoreSuite) TestUpdateAndFindByOrderID() {
	ctx := context.Background()
	app := s.newApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	orderID := "TLEXP_AB12CD34_1700000000000"
	_, err := s.store.Update(ctx, app.ID, application.Patch{OrderID: &orderID})
	s.Require().NoError(err)

	got, err := s.store.Find(ctx, application.Filter{OrderID: orderID})
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
}

func (s *PostgresStoreSuite) TestRecheckCandidates() {
	ctx := context.Background()

	candidate := s.newApplication()
	s.Require().NoError(s.store.Create(ctx, candidate))

	settled := s.newApplication()
	settled.EligibilityStatus = application.EligibilityEligible
	s.Require().NoError(s.store.Create(ctx, settled))

	recent := s.newApplication()
	now := time.Now().UTC()
	recent.EligibilityCheckedAt = &now
	s.Require().NoError(s.store.Create(ctx, recent))

	got, err := s.store.ListRecheckCandidates(ctx, 24*time.Hour, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(candidate.ID, got[0].ID)
}

func (s *PostgresStoreSuite) TestFileRecords() {
	ctx := context.Background()
	app := s.newApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	file := &application.File{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		Storage:       "local",
		FilePath:      "uploads/test.json",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.CreateFile(ctx, file))

	files, err := s.store.ListFiles(ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(files, 1)
	s.Equal("local", files[0].Storage)
}
