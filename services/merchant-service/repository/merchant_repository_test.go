package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paygate/backend/services/merchant-service/models"
	"github.com/paygate/backend/services/merchant-service/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var merchantColumns = []string{
	"merchant_id", "name", "email", "domain", "status", "api_keys", "logo_url",
	"primary_color", "background_color", "webhook_url", "metadata", "created_at", "updated_at",
}

type MerchantRepositoryTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	repo repository.MerchantRepository
}

func (s *MerchantRepositoryTestSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	s.Require().NoError(err)

	s.mock = mock
	s.repo = repository.NewMerchantRepository(gormDB)
}

func (s *MerchantRepositoryTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestMerchantRepository(t *testing.T) {
	suite.Run(t, new(MerchantRepositoryTestSuite))
}

func (s *MerchantRepositoryTestSuite) row(id uuid.UUID, status string, keys ...string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(merchantColumns).AddRow(
		id.String(), "Demo Merchant", "demo@example.com", "demo.example.com", status,
		"{"+joinKeys(keys)+"}", "https://cdn.test/logo.png", "#256569", "#E6F2F3",
		"https://demo.example.com/webhook", `{"tier":"gold"}`, now, now,
	)
}

func joinKeys(keys []string) string {
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ","
		}
		out += k
	}
	return out
}

func (s *MerchantRepositoryTestSuite) TestCreate() {
	m := &models.Merchant{
		ID:      uuid.New(),
		Name:    "Demo Merchant",
		Email:   "demo@example.com",
		Status:  models.StatusActive,
		APIKeys: pq.StringArray{"sk_test_abc"},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "merchants"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectCommit()

	s.NoError(s.repo.Create(context.Background(), m))
}

func (s *MerchantRepositoryTestSuite) TestFindByAPIKey() {
	id := uuid.New()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "merchants" WHERE $1 = ANY(api_keys)`)).
		WillReturnRows(s.row(id, models.StatusInactive, "sk_test_old", "sk_test_abc"))

	m, err := s.repo.FindByAPIKey(context.Background(), "sk_test_abc")
	s.Require().NoError(err)
	s.Equal(id, m.ID)
	s.False(m.IsActive())
	s.True(m.HasAPIKey("sk_test_old"))
	s.Equal("gold", m.Metadata["tier"])
}

func (s *MerchantRepositoryTestSuite) TestFindByID_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "merchants" WHERE merchant_id = $1`)).
		WillReturnRows(sqlmock.NewRows(merchantColumns))

	m, err := s.repo.FindByID(context.Background(), uuid.New())
	s.ErrorIs(err, repository.ErrNotFound)
	s.Nil(m)
}

func (s *MerchantRepositoryTestSuite) TestFindByDomain_Error() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "merchants" WHERE domain = $1`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.repo.FindByDomain(context.Background(), "demo.example.com")
	s.EqualError(err, "connection reset")
}

func (s *MerchantRepositoryTestSuite) TestList() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "merchants" WHERE status = $1`)).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "merchants" WHERE status = $1 ORDER BY created_at DESC`)).
		WillReturnRows(s.row(uuid.New(), models.StatusActive, "sk_test_abc"))

	merchants, total, err := s.repo.List(context.Background(), models.MerchantFilter{Status: models.StatusActive})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Len(merchants, 1)
	s.Equal(pq.StringArray{"sk_test_abc"}, merchants[0].APIKeys)
}

func (s *MerchantRepositoryTestSuite) TestCount() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "merchants"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.repo.Count(context.Background())
	s.NoError(err)
	s.EqualValues(2, n)
}
