package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ============================================================
// Plan History Repository (SQLite)
// ============================================================

// ErrNotFound возвращается, когда план с таким id не сохранялся.
var ErrNotFound = errors.New("plan not found")

// PlanRecord — сохраненный результат генерации.
type PlanRecord struct {
	ID           string    `json:"id"`
	Prompt       string    `json:"prompt"`
	BuildingType string    `json:"buildingType"`
	PlanJSON     string    `json:"plan"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init запускает миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, rec PlanRecord) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO plans (id, prompt, building_type, plan_json, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, rec.ID, rec.Prompt, rec.BuildingType, rec.PlanJSON, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*PlanRecord, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, prompt, building_type, plan_json, created_at
        FROM plans
        WHERE id = ?
    `, id)

	var rec PlanRecord
	var createdAt string
	if err := row.Scan(&rec.ID, &rec.Prompt, &rec.BuildingType, &rec.PlanJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

// List возвращает последние limit записей, новые первыми.
func (r *Repository) List(ctx context.Context, limit int) ([]PlanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, prompt, building_type, plan_json, created_at
        FROM plans
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PlanRecord
	for rows.Next() {
		var rec PlanRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.BuildingType, &rec.PlanJSON, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
