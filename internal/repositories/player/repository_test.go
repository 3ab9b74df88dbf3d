package player_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/internal/repositories/player"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getTestRepository connects to the database named by DB_HOST and friends, applies the migrations,
// and empties the tables. Tests are skipped when no database is configured.
func getTestRepository(t *testing.T) *player.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		t.Skip("Skipping integration test: DB_HOST not set")
	}

	dbName := envOr("DB_NAME", "clover")
	dsn := "host=" + dbHost + " user=" + envOr("DB_USER_NAME", "user") + " password=" + envOr("DB_PASSWORD", "password") + " dbname=" + dbName + " sslmode=disable"
	conn, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { conn.Close() })

	logger := getTestLogger()
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: filepath.Join("..", "..", "..", "db", "pg"),
	})
	require.NoError(t, migrations.MigratePostgres(conn.DB, dbName))

	_, err = conn.Exec("TRUNCATE match_roster_entries, player_stats, team_memberships, players RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	return player.NewRepository(database.NewDatabaseInstance(conn, logger), logger)
}

func dob(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRepository_PlayerCRUD(t *testing.T) {
	repo := getTestRepository(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, &models.PlayerRecord{
		FirstName:   "John",
		LastName:    "Smith",
		Email:       models.Ptr("john.smith@example.com"),
		DateOfBirth: dob(1995, time.May, 15),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	exact, err := repo.FindExact(ctx, "JOHN", "smith", *dob(1995, time.May, 15))
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, created.ID, exact[0].ID)

	byEmail, err := repo.FindByEmail(ctx, "John.Smith@Example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	updated, err := repo.Update(ctx, created.ID, models.PlayerPatch{Nationality: models.Ptr("USA")})
	require.NoError(t, err)
	assert.Equal(t, "USA", *updated.Nationality)

	_, err = repo.Insert(ctx, &models.PlayerRecord{FirstName: "Jon", LastName: "Smyth", Email: models.Ptr("JOHN.SMITH@example.com")})
	assert.ErrorIs(t, err, models.ErrEmailConflict)

	require.NoError(t, repo.DeleteRecord(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRepository_FindPrefiltered(t *testing.T) {
	repo := getTestRepository(t)
	ctx := context.Background()

	for _, p := range []models.PlayerRecord{
		{FirstName: "John", LastName: "Smith"},
		{FirstName: "Alice", LastName: "Smythe"},
		{FirstName: "Johanna", LastName: "Brown"},
		{FirstName: "Zed", LastName: "Zulu", Email: models.Ptr("zed@example.com")},
		{FirstName: "Ann", LastName: "Other"},
	} {
		_, err := repo.Insert(ctx, &p)
		require.NoError(t, err)
	}

	found, err := repo.FindPrefiltered(ctx, models.Prefilter{LastNamePrefix: "sm", FirstNamePrefix: "jo", Email: "ZED@example.com"})
	require.NoError(t, err)
	names := []string{}
	for _, p := range found {
		names = append(names, p.FirstName)
	}
	assert.Equal(t, []string{"John", "Alice", "Johanna", "Zed"}, names)

	limited, err := repo.FindPrefiltered(ctx, models.Prefilter{LastNamePrefix: "sm", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepository_JerseyConflict(t *testing.T) {
	repo := getTestRepository(t)
	ctx := context.Background()

	a, err := repo.Insert(ctx, &models.PlayerRecord{FirstName: "A", LastName: "One"})
	require.NoError(t, err)
	b, err := repo.Insert(ctx, &models.PlayerRecord{FirstName: "B", LastName: "Two"})
	require.NoError(t, err)

	_, err = repo.AddMembership(ctx, &models.TeamMembership{PlayerID: a.ID, TeamID: 7, JerseyNumber: models.Ptr(10), IsActive: true})
	require.NoError(t, err)

	_, err = repo.AddMembership(ctx, &models.TeamMembership{PlayerID: b.ID, TeamID: 7, JerseyNumber: models.Ptr(10), IsActive: true})
	assert.ErrorIs(t, err, models.ErrJerseyConflict)

	holder, err := repo.ActiveJerseyHolder(ctx, 7, 10)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, a.ID, holder.PlayerID)
}

func TestRepository_RunInTxRollsBack(t *testing.T) {
	repo := getTestRepository(t)
	ctx := context.Background()

	err := repo.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Insert(ctx, &models.PlayerRecord{FirstName: "Temp", LastName: "Player", Email: models.Ptr("temp@example.com")}); err != nil {
			return err
		}
		return models.ErrJerseyConflict
	})
	assert.ErrorIs(t, err, models.ErrJerseyConflict)

	found, err := repo.FindByEmail(ctx, "temp@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}
