// test/helpers/helpers.go
package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medtrackhq/medtrack-be/internal/adapters/db"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
)

// TestDB bundles a throwaway Postgres container with an open pool.
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis bundles an in-process miniredis with a client pointed at it.
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger keeps test output quiet unless -v is passed.
func TestLogger() *slog.Logger {
	level := slog.LevelError
	if testing.Verbose() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetupTestDB starts a Postgres container, waits for it to accept
// connections, and runs the migrations. The container is purged when the
// test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "docker daemon unreachable")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_pharmacy",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "could not start postgres container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("could not purge postgres container: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_pharmacy",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		EnableQueryLogging: testing.Verbose(),
	}

	ctx := context.Background()

	var database *db.Database
	require.NoError(t, pool.Retry(func() error {
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	}), "postgres container never became ready")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port,
			dbConfig.Database, dbConfig.SSLMode),
		SourcePath: "../../migrations",
		TableName:  "schema_migrations",
		SchemaName: "public",
	}
	require.NoError(t, db.RunMigrationsWithRetry(ctx, migrationConfig, TestLogger(), 3),
		"migrations failed against the test container")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis starts an in-process miniredis for cache tests.
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &TestRedis{Client: client, Server: mr}
}

// LoadTestConfig returns a config suitable for handler and service tests.
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_pharmacy",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		FileProcessing: config.FileProcessingConfig{
			PDFMaxSizeMB:      50,
			ExcelMaxSizeMB:    100,
			ProcessingTimeout: 5 * time.Minute,
			TempDir:           "/tmp",
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret",
			JWTExpiration:     24 * time.Hour,
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// CreateTestMedicine creates a test medicine
func CreateTestMedicine(overrides ...func(*domain.Medicine)) *domain.Medicine {
	m := &domain.Medicine{
		Name:             "Paracetamol 500mg",
		ManufacturerName: "Square Pharmaceuticals",
		ManufacturerID:   1,
		MfgDate:          time.Now().AddDate(0, -6, 0),
		ExpiryDate:       time.Now().AddDate(2, 0, 0),
		UnitPrice:        decimal.NewFromFloat(2.50),
		Stock:            100,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	for _, override := range overrides {
		override(m)
	}

	return m
}

// CreateTestMedicines creates multiple test medicines
func CreateTestMedicines(count int) []*domain.Medicine {
	names := []string{"Paracetamol 500mg", "Ibuprofen 400mg", "Omeprazole 20mg", "Cetirizine 10mg", "Amoxicillin 250mg"}
	makers := []string{"Square Pharmaceuticals", "Beximco Pharma", "Incepta", "Renata", "ACI"}

	medicines := make([]*domain.Medicine, count)
	for i := 0; i < count; i++ {
		medicines[i] = CreateTestMedicine(func(m *domain.Medicine) {
			m.Name = fmt.Sprintf("%s #%d", names[i%len(names)], i+1)
			m.ManufacturerName = makers[i%len(makers)]
			m.ManufacturerID = int64(i%len(makers)) + 1
			m.UnitPrice = decimal.NewFromFloat(float64(1+i) * 0.75)
			m.Stock = 50 + i*10
		})
	}

	return medicines
}

// CreateTestSaleInput creates a valid sale input
func CreateTestSaleInput(overrides ...func(*domain.SaleInput)) *domain.SaleInput {
	in := &domain.SaleInput{
		CustomerName:  "Rahim Uddin",
		CustomerPhone: "01712345678",
		Quantity:      10,
		UnitPrice:     decimal.NewFromFloat(2.50),
	}

	for _, override := range overrides {
		override(in)
	}

	return in
}

// TruncateAllTables empties every application table between test cases.
func TruncateAllTables(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"sales", "medicines", "users"} {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "truncate %s", table)
	}
}

// SeedMedicines inserts the given medicines and fills in generated ids.
func SeedMedicines(t *testing.T, db *pgxpool.Pool, medicines []*domain.Medicine) {
	t.Helper()

	ctx := context.Background()
	const query = `
		INSERT INTO medicines (
			name, manufacturer_name, manufacturer_id,
			mfg_date, expiry_date, unit_price, stock,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	for _, m := range medicines {
		err := db.QueryRow(ctx, query,
			m.Name, m.ManufacturerName, m.ManufacturerID,
			m.MfgDate, m.ExpiryDate, m.UnitPrice, m.Stock,
			m.CreatedAt, m.UpdatedAt,
		).Scan(&m.ID)
		require.NoError(t, err, "seed medicine %q", m.Name)
	}
}

// CreateTempFile writes content to a temp file and removes it on cleanup.
func CreateTempFile(t *testing.T, content []byte, extension string) string {
	t.Helper()

	file, err := os.CreateTemp("", "test-*"+extension)
	require.NoError(t, err)

	_, err = file.Write(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	t.Cleanup(func() { os.Remove(file.Name()) })

	return file.Name()
}
