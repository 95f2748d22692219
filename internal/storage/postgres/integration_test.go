//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"datafeeder/internal/domain"
	"datafeeder/internal/testutil"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_catalog.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM affiliate_sync_state")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM affiliate_offers")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM affiliate_categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM affiliates")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM games")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertAffiliate(name string, program domain.Program, enabled bool) int64 {
	var id int64
	err := s.db.GetContext(s.ctx, &id, `
		INSERT INTO affiliates (name, program, enabled, data_source_url, shipping_nl)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		name, program, enabled, "https://feeds.example/"+name+".csv", 3.95,
	)
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) insertGame(ean int64, name string) {
	_, err := NewGameStore(s.db).Upsert(s.ctx, &domain.Game{EAN: ean, Name: name, LastLowestPrice: 10})
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) TestAffiliateStore_ListEnabled() {
	first := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	s.insertAffiliate("Gesloten", domain.ProgramAwin, false)
	second := s.insertAffiliate("Bruna", domain.ProgramDaisycon, true)

	affiliates, err := NewAffiliateStore(s.db).ListEnabled(s.ctx)

	s.NoError(err)
	s.Require().Len(affiliates, 2)
	s.Equal(first, affiliates[0].ID)
	s.Equal(domain.ProgramAdtraction, affiliates[0].Program)
	s.Equal(3.95, affiliates[0].ShippingNL)
	s.Equal(second, affiliates[1].ID)
}

func (s *PostgresIntegrationSuite) TestAffiliateStore_ListsUnknownProgram() {
	id := s.insertAffiliate("Onbekend", domain.Program("Bol"), true)

	affiliates, err := NewAffiliateStore(s.db).ListEnabled(s.ctx)

	s.NoError(err)
	s.Require().Len(affiliates, 1)
	s.Equal(id, affiliates[0].ID)
	s.Equal(domain.Program("Bol"), affiliates[0].Program)
}

func (s *PostgresIntegrationSuite) TestGameStore_UpsertAndListEANs() {
	store := NewGameStore(s.db)

	created, err := store.Upsert(s.ctx, &domain.Game{EAN: 8710000000001, Name: "Catan", LastLowestPrice: 24.99})
	s.NoError(err)
	s.True(created)

	created, err = store.Upsert(s.ctx, &domain.Game{EAN: 8710000000001, Name: "Catan Basisspel", LastLowestPrice: 22.50})
	s.NoError(err)
	s.False(created)

	s.insertGame(8710000000002, "Carcassonne")

	eans, err := store.ListEANs(s.ctx)
	s.NoError(err)
	s.Len(eans, 2)
	s.Contains(eans, int64(8710000000001))

	var name string
	err = s.db.GetContext(s.ctx, &name, "SELECT name FROM games WHERE ean = $1", 8710000000001)
	s.NoError(err)
	s.Equal("Catan Basisspel", name)
}

func (s *PostgresIntegrationSuite) TestGameStore_DeleteAllCascadesOffers() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	s.insertGame(1, "Catan")
	s.insertGame(2, "Carcassonne")
	_, err := NewOfferStore(s.db).Upsert(s.ctx, &domain.Offer{AffiliateID: affiliateID, GameEAN: 1, Price: 20, Stock: 1})
	s.Require().NoError(err)

	deleted, err := NewGameStore(s.db).DeleteAll(s.ctx)
	s.NoError(err)
	s.Equal(int64(2), deleted)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM affiliate_offers")
	s.NoError(err)
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestGameStore_ListWithOffers() {
	first := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	second := s.insertAffiliate("Bruna", domain.ProgramDaisycon, true)
	s.insertGame(1, "Catan")
	s.insertGame(2, "Carcassonne")

	offers := NewOfferStore(s.db)
	_, err := offers.Upsert(s.ctx, &domain.Offer{AffiliateID: first, GameEAN: 1, Price: 25, Stock: 1})
	s.Require().NoError(err)
	_, err = offers.Upsert(s.ctx, &domain.Offer{AffiliateID: second, GameEAN: 1, Price: 22.5, Stock: 0})
	s.Require().NoError(err)

	games, err := NewGameStore(s.db).ListWithOffers(s.ctx)

	s.NoError(err)
	s.Require().Len(games, 2)
	s.Equal(int64(1), games[0].EAN)
	s.Len(games[0].Offers, 2)
	s.Equal(22.5, games[0].Offers[1].Price)
	s.Empty(games[1].Offers)
}

func (s *PostgresIntegrationSuite) TestGameStore_UpdateLastLowestPrice() {
	s.insertGame(1, "Catan")

	err := NewGameStore(s.db).UpdateLastLowestPrice(s.ctx, 1, 19.95)
	s.NoError(err)

	var price float64
	err = s.db.GetContext(s.ctx, &price, "SELECT last_lowest_price FROM games WHERE ean = $1", 1)
	s.NoError(err)
	s.Equal(19.95, price)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_GetOrCreate() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	store := NewCategoryStore(s.db)

	category, created, err := store.GetOrCreate(s.ctx, affiliateID, "Bordspellen")
	s.NoError(err)
	s.True(created)
	s.False(category.Include)

	again, created, err := store.GetOrCreate(s.ctx, affiliateID, "Bordspellen")
	s.NoError(err)
	s.False(created)
	s.Equal(category.ID, again.ID)

	categories, err := store.ListByAffiliate(s.ctx, affiliateID)
	s.NoError(err)
	s.Len(categories, 1)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_SetInclude() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	store := NewCategoryStore(s.db)

	first, _, err := store.GetOrCreate(s.ctx, affiliateID, "Bordspellen")
	s.Require().NoError(err)
	second, _, err := store.GetOrCreate(s.ctx, affiliateID, "Puzzels")
	s.Require().NoError(err)
	_, _, err = store.GetOrCreate(s.ctx, affiliateID, "Speelgoed")
	s.Require().NoError(err)

	n, err := store.SetInclude(s.ctx, []int64{first.ID, second.ID}, true)
	s.NoError(err)
	s.Equal(int64(2), n)

	categories, err := store.ListByAffiliate(s.ctx, affiliateID)
	s.NoError(err)
	s.Require().Len(categories, 3)
	s.True(categories[0].Include)
	s.True(categories[1].Include)
	s.False(categories[2].Include)
}

func (s *PostgresIntegrationSuite) TestOfferStore_Upsert() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	s.insertGame(1, "Catan")
	category, _, err := NewCategoryStore(s.db).GetOrCreate(s.ctx, affiliateID, "Bordspellen")
	s.Require().NoError(err)

	store := NewOfferStore(s.db)
	offer := &domain.Offer{
		AffiliateID: affiliateID,
		GameEAN:     1,
		CategoryID:  testutil.Ptr(category.ID),
		Price:       24.99,
		Stock:       3,
		Link:        "https://shop.example/catan",
	}

	created, err := store.Upsert(s.ctx, offer)
	s.NoError(err)
	s.True(created)

	offer.Price = 21.50
	offer.Stock = 0
	created, err = store.Upsert(s.ctx, offer)
	s.NoError(err)
	s.False(created)

	var stored domain.Offer
	err = s.db.GetContext(s.ctx, &stored, `
		SELECT affiliate_id, game_ean, category_id, price, stock, description, image, link
		FROM affiliate_offers WHERE affiliate_id = $1 AND game_ean = $2`, affiliateID, 1)
	s.NoError(err)
	s.Equal(21.50, stored.Price)
	s.Equal(0, stored.Stock)
	s.Require().NotNil(stored.CategoryID)
	s.Equal(category.ID, *stored.CategoryID)
}

func (s *PostgresIntegrationSuite) TestOfferStore_UnknownGame() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)

	_, err := NewOfferStore(s.db).Upsert(s.ctx, &domain.Offer{AffiliateID: affiliateID, GameEAN: 404, Price: 1})
	s.Error(err)
}

func (s *PostgresIntegrationSuite) TestSyncStateStore_GetNew() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)

	state, err := NewSyncStateStore(s.db).Get(s.ctx, affiliateID)
	s.NoError(err)
	s.NotNil(state)
	s.Equal(affiliateID, state.AffiliateID)
	s.True(state.LastSyncedAt.IsZero())
	s.Equal(int64(0), state.TotalSynced)
}

func (s *PostgresIntegrationSuite) TestSyncStateStore_UpdateExisting() {
	affiliateID := s.insertAffiliate("Spelhuis", domain.ProgramAdtraction, true)
	store := NewSyncStateStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	state := &domain.SyncState{
		AffiliateID:     affiliateID,
		LastSyncedAt:    now,
		LastRecordCount: 10,
		TotalSynced:     10,
		LastError:       testutil.Ptr("fetch feed: unexpected status 500"),
	}
	s.NoError(store.Update(s.ctx, state))

	state.LastRecordCount = 12
	state.TotalSynced = 22
	state.LastError = nil
	s.NoError(store.Update(s.ctx, state))

	retrieved, err := store.Get(s.ctx, affiliateID)
	s.NoError(err)
	s.Equal(12, retrieved.LastRecordCount)
	s.Equal(int64(22), retrieved.TotalSynced)
	s.Nil(retrieved.LastError)
	s.WithinDuration(now, retrieved.LastSyncedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	games := NewGameStore(s.db)
	s.insertGame(1, "Catan")

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := games.DeleteAll(ctx); err != nil {
			return err
		}
		_, err := games.Upsert(ctx, &domain.Game{EAN: 2, Name: "Carcassonne"})
		return err
	})
	s.NoError(err)

	eans, err := games.ListEANs(s.ctx)
	s.NoError(err)
	s.Equal(map[int64]struct{}{2: {}}, eans)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	games := NewGameStore(s.db)
	s.insertGame(1, "Catan")
	failure := errors.New("bad row")

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := games.DeleteAll(ctx); err != nil {
			return err
		}
		if _, err := games.Upsert(ctx, &domain.Game{EAN: 2, Name: "Carcassonne"}); err != nil {
			return err
		}
		return failure
	})
	s.ErrorIs(err, failure)

	eans, err := games.ListEANs(s.ctx)
	s.NoError(err)
	s.Equal(map[int64]struct{}{1: {}}, eans)
}
