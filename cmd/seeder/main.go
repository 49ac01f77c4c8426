package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
	"golang.org/x/crypto/bcrypt"
)

// SeedMedicine is a catalog row read from the input file or generated.
type SeedMedicine struct {
	Name             string
	ManufacturerName string
	ManufacturerID   int64
	MfgDate          time.Time
	ExpiryDate       time.Time
	UnitPrice        decimal.Decimal
	Stock            int
}

// CatalogLoader reads medicines from an Excel catalog file.
type CatalogLoader struct {
	logger *slog.Logger
}

func NewCatalogLoader(logger *slog.Logger) *CatalogLoader {
	return &CatalogLoader{logger: logger}
}

// LoadFromExcel reads a catalog spreadsheet. Expected columns:
// name, manufacturer, mfg date, expiry date, unit price, stock.
func (l *CatalogLoader) LoadFromExcel(path string) ([]SeedMedicine, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in catalog file")
	}
	sheet := file.Sheets[0]

	var medicines []SeedMedicine
	rowIdx := 0
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		// Skip header
		if rowIdx == 0 {
			rowIdx++
			return nil
		}
		rowIdx++

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		name := get(0)
		if name == "" {
			return nil
		}

		mfgDate, err := parseDate(get(2))
		if err != nil {
			l.logger.Warn("skipping row with bad mfg date",
				slog.Int("row", rowIdx),
				slog.String("value", get(2)))
			return nil
		}
		expiryDate, err := parseDate(get(3))
		if err != nil {
			l.logger.Warn("skipping row with bad expiry date",
				slog.Int("row", rowIdx),
				slog.String("value", get(3)))
			return nil
		}

		price, err := decimal.NewFromString(strings.ReplaceAll(get(4), ",", ""))
		if err != nil {
			price = decimal.Zero
		}
		stock, _ := strconv.Atoi(get(5))

		medicines = append(medicines, SeedMedicine{
			Name:             name,
			ManufacturerName: get(1),
			MfgDate:          mfgDate,
			ExpiryDate:       expiryDate,
			UnitPrice:        price,
			Stock:            stock,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	l.logger.Info("loaded catalog from file",
		slog.String("file", path),
		slog.Int("count", len(medicines)))
	return medicines, nil
}

func parseDate(val string) (time.Time, error) {
	layouts := []string{"2006-01-02", "01/02/2006", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", val)
}

// sampleCatalog generates a realistic catalog when no input file is given.
func sampleCatalog(count int) []SeedMedicine {
	type template struct {
		name         string
		manufacturer string
		price        string
	}
	templates := []template{
		{"Paracetamol 500mg Tablets", "Cipla", "4.50"},
		{"Amoxicillin 250mg Capsules", "Sun Pharma", "12.00"},
		{"Ibuprofen 200mg Tablets", "GSK", "6.25"},
		{"Cetirizine 10mg Tablets", "Dr. Reddy's", "3.80"},
		{"Omeprazole 20mg Capsules", "Lupin", "9.40"},
		{"Metformin 500mg Tablets", "USV", "5.10"},
		{"Amlodipine 5mg Tablets", "Pfizer", "7.75"},
		{"Azithromycin 500mg Tablets", "Zydus", "18.60"},
		{"Salbutamol Inhaler 100mcg", "Cipla", "145.00"},
		{"Insulin Glargine 100IU/ml", "Sanofi", "1250.00"},
		{"Atorvastatin 10mg Tablets", "Ranbaxy", "11.30"},
		{"Pantoprazole 40mg Tablets", "Alkem", "8.90"},
		{"Dolo 650mg Tablets", "Micro Labs", "2.95"},
		{"Montelukast 10mg Tablets", "Mankind", "14.20"},
		{"Vitamin D3 60000IU Capsules", "Abbott", "32.50"},
	}

	now := time.Now()
	medicines := make([]SeedMedicine, 0, count)
	for i := 0; i < count; i++ {
		t := templates[i%len(templates)]
		batch := i/len(templates) + 1

		name := t.name
		if batch > 1 {
			name = fmt.Sprintf("%s (Batch %d)", t.name, batch)
		}

		mfg := now.AddDate(0, -rand.Intn(18)-1, 0)
		expiry := mfg.AddDate(2, 0, 0)

		medicines = append(medicines, SeedMedicine{
			Name:             name,
			ManufacturerName: t.manufacturer,
			ManufacturerID:   int64(i%len(templates) + 1),
			MfgDate:          mfg,
			ExpiryDate:       expiry,
			UnitPrice:        decimal.RequireFromString(t.price),
			Stock:            rand.Intn(490) + 10,
		})
	}
	return medicines
}

// Seeder writes catalog rows and bootstrap users to the database.
type Seeder struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewSeeder(db *pgxpool.Pool, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, logger: logger}
}

// SaveMedicines inserts catalog rows in a single batched transaction.
func (s *Seeder) SaveMedicines(ctx context.Context, medicines []SeedMedicine) error {
	if len(medicines) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, m := range medicines {
		batch.Queue(`
			INSERT INTO medicines (
				name, manufacturer_name, manufacturer_id,
				mfg_date, expiry_date, unit_price, stock
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.Name, m.ManufacturerName, m.ManufacturerID,
			m.MfgDate, m.ExpiryDate, m.UnitPrice, m.Stock,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range medicines {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert medicine: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("saved medicines to database", slog.Int("count", len(medicines)))
	return nil
}

// EnsureAdminUser creates the bootstrap login if it does not exist.
func (s *Seeder) EnsureAdminUser(ctx context.Context, username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING`,
		username, email, string(hash),
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		s.logger.Info("admin user already exists", slog.String("username", username))
	} else {
		s.logger.Info("created admin user", slog.String("username", username))
	}
	return nil
}

func main() {
	var (
		catalogFile   = flag.String("catalog", "", "Excel catalog file to seed from (generates sample data if empty)")
		count         = flag.Int("count", 50, "Number of sample medicines to generate when no catalog file is given")
		adminUser     = flag.String("admin-user", "admin", "Bootstrap admin username")
		adminEmail    = flag.String("admin-email", "admin@medtrack.local", "Bootstrap admin email")
		adminPassword = flag.String("admin-password", "", "Bootstrap admin password (required unless -dry-run)")
		logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun        = flag.Bool("dry-run", false, "Preview changes without modifying database")
	)
	flag.Parse()

	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)

	if !*dryRun && *adminPassword == "" {
		logger.Error("admin password is required, pass -admin-password or use -dry-run")
		os.Exit(1)
	}

	dbURL := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "medtrack"),
		getEnv("DB_PASSWORD", "medtrack_dev_2026"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "medtrack"),
		getEnv("DB_SSL_MODE", "disable"),
	)

	ctx := context.Background()

	var db *pgxpool.Pool
	var err error
	if !*dryRun {
		db, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
	}

	var medicines []SeedMedicine
	if *catalogFile != "" {
		loader := NewCatalogLoader(logger)
		medicines, err = loader.LoadFromExcel(*catalogFile)
		if err != nil {
			logger.Error("failed to load catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		medicines = sampleCatalog(*count)
		logger.Info("generated sample catalog", slog.Int("count", len(medicines)))
	}

	if *dryRun {
		for _, m := range medicines {
			fmt.Printf("%-45s %-15s price=%-10s stock=%d expiry=%s\n",
				m.Name, m.ManufacturerName, m.UnitPrice.StringFixed(2), m.Stock,
				m.ExpiryDate.Format("2006-01-02"))
		}
		fmt.Printf("\n[DRY RUN] %d medicines, no changes were made to the database\n", len(medicines))
		return
	}

	seeder := NewSeeder(db, logger)

	if err := seeder.SaveMedicines(ctx, medicines); err != nil {
		logger.Error("failed to seed medicines", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := seeder.EnsureAdminUser(ctx, *adminUser, *adminEmail, *adminPassword); err != nil {
		logger.Error("failed to seed admin user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seed operation completed",
		slog.Int("medicines", len(medicines)),
		slog.String("admin_user", *adminUser))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
