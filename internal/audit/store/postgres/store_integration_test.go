//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"authgate/internal/audit"
	"authgate/internal/audit/store/postgres"
	id "authgate/pkg/domain"
	"authgate/pkg/testutil/containers"
)

type PostgresAuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditStoreSuite))
}

func (s *PostgresAuditStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresAuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_entries"))
}

func (s *PostgresAuditStoreSuite) append(userID *id.UserID, action audit.Action, status audit.Status, at time.Time) {
	s.Require().NoError(s.store.Append(context.Background(), &audit.Entry{
		ID:        id.NewAuditID(),
		UserID:    userID,
		Action:    action,
		Resource:  "auth",
		Details:   map[string]any{"reason": "test"},
		IPAddress: "203.0.113.7",
		Status:    status,
		CreatedAt: at.UTC().Truncate(time.Microsecond),
	}))
}

func (s *PostgresAuditStoreSuite) TestAppendAndQuery() {
	ctx := context.Background()
	alice := id.NewUserID()
	base := time.Now().UTC().Add(-time.Hour)

	s.append(&alice, audit.ActionLogin, audit.StatusSuccess, base)
	s.append(&alice, audit.ActionLogin, audit.StatusFailure, base.Add(time.Minute))
	s.append(nil, audit.ActionLogin, audit.StatusFailure, base.Add(2*time.Minute))
	s.append(&alice, audit.ActionLogout, audit.StatusSuccess, base.Add(3*time.Minute))

	s.Run("filter by user", func() {
		page, err := s.store.Query(ctx, audit.Filter{UserID: &alice})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
	})

	s.Run("filter by action and status", func() {
		page, err := s.store.Query(ctx, audit.Filter{Action: audit.ActionLogin, Status: audit.StatusFailure})
		s.Require().NoError(err)
		s.Equal(2, page.Total)
	})

	s.Run("unattributed entries keep a null user", func() {
		page, err := s.store.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Require().Equal(4, page.Total)

		var unattributed int
		for _, entry := range page.Entries {
			if entry.UserID == nil {
				unattributed++
			}
		}
		s.Equal(1, unattributed)
	})

	s.Run("newest first with details round-tripped", func() {
		page, err := s.store.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Equal(audit.ActionLogout, page.Entries[0].Action)
		s.Equal("test", page.Entries[0].Details["reason"])
	})

	s.Run("pagination", func() {
		page, err := s.store.Query(ctx, audit.Filter{Page: 2, PerPage: 3})
		s.Require().NoError(err)
		s.Equal(4, page.Total)
		s.Len(page.Entries, 1)
	})
}

func (s *PostgresAuditStoreSuite) TestPurge() {
	ctx := context.Background()
	old := time.Now().UTC().Add(-100 * 24 * time.Hour)
	s.append(nil, audit.ActionLogin, audit.StatusSuccess, old)
	s.append(nil, audit.ActionLogin, audit.StatusSuccess, time.Now().UTC())

	purged, err := s.store.PurgeOlderThan(ctx, time.Now().UTC().Add(-90*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, purged)

	page, err := s.store.Query(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
}
