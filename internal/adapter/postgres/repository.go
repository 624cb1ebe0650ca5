package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq" // postgres driver

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

// insertChunk bounds rows per statement; Postgres allows 65535 bind parameters.
const insertChunk = 1000

// Repository is the typed client for the dashboard tables.
type Repository struct {
	db    *sqlx.DB
	clock clockwork.Clock
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, clockwork.NewRealClock()), nil
}

// New wraps an existing connection pool.
func New(db *sqlx.DB, clock clockwork.Clock) *Repository {
	return &Repository{db: db, clock: clock}
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CheckReadiness pings the database.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

type visitorRow struct {
	ID            uuid.UUID `db:"id"`
	Date          string    `db:"date"`
	VisitorCount  int       `db:"visitor_count"`
	DayOfWeek     *string   `db:"day_of_week"`
	IsWeekend     bool      `db:"is_weekend"`
	IsHoliday     bool      `db:"is_holiday"`
	IsSchoolBreak bool      `db:"is_school_break"`
	SpecialEvent  *string   `db:"special_event"`
	CreatedAt     time.Time `db:"created_at"`
}

type weatherRow struct {
	ID            uuid.UUID `db:"id"`
	Date          string    `db:"date"`
	Temperature   float64   `db:"temperature"`
	Condition     string    `db:"condition"`
	Description   *string   `db:"description"`
	FeelsLike     *float64  `db:"feels_like"`
	Humidity      *float64  `db:"humidity"`
	Icon          *string   `db:"icon"`
	Precipitation *float64  `db:"precipitation"`
	WindSpeed     *float64  `db:"wind_speed"`
	CreatedAt     time.Time `db:"created_at"`
}

const insertVisitorsQuery = `
	INSERT INTO visitor_data (
		id, date, visitor_count, day_of_week,
		is_weekend, is_holiday, is_school_break, special_event, created_at
	) VALUES (
		:id, :date, :visitor_count, :day_of_week,
		:is_weekend, :is_holiday, :is_school_break, :special_event, :created_at
	)`

const insertWeatherQuery = `
	INSERT INTO weather_data (
		id, date, temperature, condition,
		description, feels_like, humidity, icon, precipitation, wind_speed, created_at
	) VALUES (
		:id, :date, :temperature, :condition,
		:description, :feels_like, :humidity, :icon, :precipitation, :wind_speed, :created_at
	)`

// InsertVisitorData stores all records or none.
func (r *Repository) InsertVisitorData(ctx context.Context, records []domain.VisitorRecord) error {
	rows := make([]visitorRow, len(records))
	for i, rec := range records {
		rows[i] = visitorRow{
			ID:            uuid.New(),
			Date:          rec.Date,
			VisitorCount:  rec.VisitorCount,
			DayOfWeek:     rec.DayOfWeek,
			IsWeekend:     rec.IsWeekend,
			IsHoliday:     rec.IsHoliday,
			IsSchoolBreak: rec.IsSchoolBreak,
			SpecialEvent:  rec.SpecialEvent,
			CreatedAt:     rec.CreatedAt,
		}
	}
	return insertAll(ctx, r.db, insertVisitorsQuery, rows)
}

// InsertWeatherData stores all records or none.
func (r *Repository) InsertWeatherData(ctx context.Context, records []domain.WeatherRecord) error {
	rows := make([]weatherRow, len(records))
	for i, rec := range records {
		rows[i] = weatherRow{
			ID:          uuid.New(),
			Date:        rec.Date,
			Temperature: rec.Temperature,
			Condition:   rec.Condition,
			CreatedAt:   rec.CreatedAt,
		}
	}
	return insertAll(ctx, r.db, insertWeatherQuery, rows)
}

// InsertWeatherSnapshot records a fetched reading as a weather_data row.
// The description doubles as the condition.
func (r *Repository) InsertWeatherSnapshot(ctx context.Context, s domain.WeatherSnapshot) error {
	row := weatherRow{
		ID:            uuid.New(),
		Date:          s.Date,
		Temperature:   s.Temp,
		Condition:     s.Description,
		Description:   &s.Description,
		FeelsLike:     &s.FeelsLike,
		Humidity:      &s.Humidity,
		Icon:          &s.Icon,
		Precipitation: &s.Precipitation,
		WindSpeed:     &s.WindSpeed,
		CreatedAt:     r.clock.Now(),
	}
	if _, err := r.db.NamedExecContext(ctx, insertWeatherQuery, row); err != nil {
		return fmt.Errorf("insert weather snapshot: %w", err)
	}
	return nil
}

// insertAll writes rows in chunked multi-row statements inside one transaction.
func insertAll[T any](ctx context.Context, db *sqlx.DB, query string, rows []T) (err error) {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		if _, err = tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

const selectVisitorColumns = `
	to_char(date, 'YYYY-MM-DD') AS date, visitor_count, day_of_week,
	COALESCE(is_weekend, false) AS is_weekend,
	COALESCE(is_holiday, false) AS is_holiday,
	COALESCE(is_school_break, false) AS is_school_break,
	special_event,
	COALESCE(created_at, 'epoch'::timestamptz) AS created_at`

type visitorReadRow struct {
	Date          string    `db:"date"`
	VisitorCount  int       `db:"visitor_count"`
	DayOfWeek     *string   `db:"day_of_week"`
	IsWeekend     bool      `db:"is_weekend"`
	IsHoliday     bool      `db:"is_holiday"`
	IsSchoolBreak bool      `db:"is_school_break"`
	SpecialEvent  *string   `db:"special_event"`
	CreatedAt     time.Time `db:"created_at"`
}

func (v visitorReadRow) record() domain.VisitorRecord {
	return domain.VisitorRecord{
		Date:          v.Date,
		VisitorCount:  v.VisitorCount,
		DayOfWeek:     v.DayOfWeek,
		IsWeekend:     v.IsWeekend,
		IsHoliday:     v.IsHoliday,
		IsSchoolBreak: v.IsSchoolBreak,
		SpecialEvent:  v.SpecialEvent,
		CreatedAt:     v.CreatedAt,
	}
}

// ListRecentVisitors returns the newest limit days, newest first.
func (r *Repository) ListRecentVisitors(ctx context.Context, limit int) ([]domain.VisitorRecord, error) {
	var rows []visitorReadRow
	query := `SELECT ` + selectVisitorColumns + ` FROM visitor_data ORDER BY date DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent visitors: %w", err)
	}
	return toRecords(rows), nil
}

// ListVisitorsBetween returns days in [from, to] (ISO dates) in ascending order.
func (r *Repository) ListVisitorsBetween(ctx context.Context, from, to string) ([]domain.VisitorRecord, error) {
	var rows []visitorReadRow
	query := `SELECT ` + selectVisitorColumns + ` FROM visitor_data WHERE date BETWEEN $1 AND $2 ORDER BY date ASC`
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list visitors between %s and %s: %w", from, to, err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []visitorReadRow) []domain.VisitorRecord {
	out := make([]domain.VisitorRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out
}

type settingsRow struct {
	OpenWeatherAPIKey string     `db:"openweather_api_key"`
	PostalCode        string     `db:"postal_code"`
	LastUpdated       *time.Time `db:"last_updated"`
}

func (s settingsRow) settings() domain.Settings {
	return domain.Settings{
		OpenWeatherAPIKey: s.OpenWeatherAPIKey,
		PostalCode:        s.PostalCode,
		LastUpdated:       s.LastUpdated,
	}
}

// GetSettings reads the single settings row. A missing row is empty settings.
func (r *Repository) GetSettings(ctx context.Context) (domain.Settings, error) {
	const query = `
		SELECT COALESCE(openweather_api_key, '') AS openweather_api_key,
		       COALESCE(postal_code, '') AS postal_code,
		       last_updated
		FROM settings WHERE id = 1`

	var row settingsRow
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return row.settings(), nil
}

// UpdateSettings applies the non-nil fields of upd and returns the stored row.
func (r *Repository) UpdateSettings(ctx context.Context, upd domain.SettingsUpdate) (domain.Settings, error) {
	const query = `
		INSERT INTO settings (id, openweather_api_key, postal_code, last_updated)
		VALUES (1, COALESCE($1::text, ''), COALESCE($2::text, ''), $3)
		ON CONFLICT (id) DO UPDATE SET
			openweather_api_key = COALESCE($1::text, settings.openweather_api_key),
			postal_code         = COALESCE($2::text, settings.postal_code),
			last_updated        = $3
		RETURNING COALESCE(openweather_api_key, '') AS openweather_api_key,
		          COALESCE(postal_code, '') AS postal_code,
		          last_updated`

	var row settingsRow
	if err := r.db.GetContext(ctx, &row, query, upd.OpenWeatherAPIKey, upd.PostalCode, r.clock.Now()); err != nil {
		return domain.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return row.settings(), nil
}

// LatestLiveVisitorCount returns the newest scraped count, or domain.ErrNotFound.
func (r *Repository) LatestLiveVisitorCount(ctx context.Context) (domain.LiveVisitorCount, error) {
	const query = `
		SELECT visitor_count, timestamp
		FROM live_visitor_counts
		ORDER BY timestamp DESC
		LIMIT 1`

	var live domain.LiveVisitorCount
	err := r.db.GetContext(ctx, &live, query)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LiveVisitorCount{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LiveVisitorCount{}, fmt.Errorf("latest live visitor count: %w", err)
	}
	return live, nil
}
