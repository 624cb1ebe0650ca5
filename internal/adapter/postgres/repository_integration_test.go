//go:build integration

package postgres_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/couchcryptid/swim-forecast-service/internal/adapter/postgres"
	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

var fixedNow = time.Date(2025, time.April, 20, 8, 0, 0, 0, time.UTC)

// startPostgres runs a throwaway Postgres with the reference schema loaded.
func startPostgres(ctx context.Context, t *testing.T) (*postgres.Repository, *sqlx.DB) {
	t.Helper()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("swim_forecast"),
		tcpostgres.WithUsername("swim"),
		tcpostgres.WithPassword("swim"),
		tcpostgres.WithInitScripts(filepath.Join("testdata", "schema.sql")),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return postgres.New(db, clockwork.NewFakeClockAt(fixedNow)), db
}

func strPtr(s string) *string { return &s }

func TestRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, db := startPostgres(ctx, t)

	t.Run("readiness", func(t *testing.T) {
		require.NoError(t, repo.CheckReadiness(ctx))
	})

	t.Run("visitors round trip", func(t *testing.T) {
		records := []domain.VisitorRecord{
			{Date: "2024-07-13", VisitorCount: 1200, DayOfWeek: strPtr("Samstag"), IsWeekend: true, CreatedAt: fixedNow},
			{Date: "2025-04-16", VisitorCount: 312, IsSchoolBreak: true, CreatedAt: fixedNow},
			{Date: "2025-04-19", VisitorCount: 905, SpecialEvent: strPtr("Osterfest"), IsHoliday: true, CreatedAt: fixedNow},
		}
		require.NoError(t, repo.InsertVisitorData(ctx, records))

		recent, err := repo.ListRecentVisitors(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "2025-04-19", recent[0].Date)
		assert.Equal(t, "2025-04-16", recent[1].Date)
		assert.Equal(t, strPtr("Osterfest"), recent[0].SpecialEvent)
		assert.True(t, recent[0].IsHoliday)
		assert.True(t, recent[0].CreatedAt.Equal(fixedNow))

		between, err := repo.ListVisitorsBetween(ctx, "2024-01-01", "2024-12-31")
		require.NoError(t, err)
		require.Len(t, between, 1)
		assert.Equal(t, 1200, between[0].VisitorCount)
		assert.Equal(t, strPtr("Samstag"), between[0].DayOfWeek)
	})

	t.Run("visitor insert is all or nothing", func(t *testing.T) {
		var before int
		require.NoError(t, db.GetContext(ctx, &before, `SELECT count(*) FROM visitor_data`))

		err := repo.InsertVisitorData(ctx, []domain.VisitorRecord{
			{Date: "2025-05-01", VisitorCount: 10, CreatedAt: fixedNow},
			{Date: "2025-05-02", VisitorCount: -1, CreatedAt: fixedNow},
		})
		require.Error(t, err)

		var after int
		require.NoError(t, db.GetContext(ctx, &after, `SELECT count(*) FROM visitor_data`))
		assert.Equal(t, before, after)
	})

	t.Run("large insert is chunked", func(t *testing.T) {
		start := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
		records := make([]domain.VisitorRecord, 2500)
		for i := range records {
			records[i] = domain.VisitorRecord{Date: start.AddDate(0, 0, i).Format(domain.DateLayout), VisitorCount: i, CreatedAt: fixedNow}
		}
		require.NoError(t, repo.InsertVisitorData(ctx, records))

		got, err := repo.ListVisitorsBetween(ctx, "2010-01-01", start.AddDate(0, 0, 2499).Format(domain.DateLayout))
		require.NoError(t, err)
		assert.Len(t, got, 2500)
	})

	t.Run("weather data and snapshots", func(t *testing.T) {
		require.NoError(t, repo.InsertWeatherData(ctx, []domain.WeatherRecord{
			{Date: "2025-04-16", Temperature: 18.5, Condition: "Sonnig", CreatedAt: fixedNow},
		}))
		require.NoError(t, repo.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
			Date: "2025-04-20", Temp: 21, FeelsLike: 20, Humidity: 50,
			Description: "klarer Himmel", Icon: "01d", Precipitation: 0, WindSpeed: 2.5,
		}))

		var rows []struct {
			Date      string  `db:"date"`
			Condition string  `db:"condition"`
			Icon      *string `db:"icon"`
		}
		require.NoError(t, db.SelectContext(ctx, &rows,
			`SELECT to_char(date, 'YYYY-MM-DD') AS date, condition, icon FROM weather_data ORDER BY date`))
		require.Len(t, rows, 2)
		assert.Equal(t, "Sonnig", rows[0].Condition)
		assert.Nil(t, rows[0].Icon)
		assert.Equal(t, "klarer Himmel", rows[1].Condition)
		assert.Equal(t, strPtr("01d"), rows[1].Icon)
	})

	t.Run("settings", func(t *testing.T) {
		empty, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Settings{}, empty)

		saved, err := repo.UpdateSettings(ctx, domain.SettingsUpdate{OpenWeatherAPIKey: strPtr("key-1")})
		require.NoError(t, err)
		assert.Equal(t, "key-1", saved.OpenWeatherAPIKey)
		assert.Empty(t, saved.PostalCode)
		require.NotNil(t, saved.LastUpdated)
		assert.True(t, saved.LastUpdated.Equal(fixedNow))

		saved, err = repo.UpdateSettings(ctx, domain.SettingsUpdate{PostalCode: strPtr("10115")})
		require.NoError(t, err)
		assert.Equal(t, "key-1", saved.OpenWeatherAPIKey)
		assert.Equal(t, "10115", saved.PostalCode)

		got, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, "key-1", got.OpenWeatherAPIKey)
		assert.Equal(t, "10115", got.PostalCode)
	})

	t.Run("live visitor count", func(t *testing.T) {
		_, err := repo.LatestLiveVisitorCount(ctx)
		require.ErrorIs(t, err, domain.ErrNotFound)

		_, err = db.ExecContext(ctx, `INSERT INTO live_visitor_counts (visitor_count, timestamp) VALUES ($1, $2), ($3, $4)`,
			140, fixedNow.Add(-time.Hour), 175, fixedNow)
		require.NoError(t, err)

		live, err := repo.LatestLiveVisitorCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 175, live.VisitorCount)
		assert.True(t, live.Timestamp.Equal(fixedNow))
	})
}
