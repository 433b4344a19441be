package views

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"building-viewer/internal/viewer/models"
)

// ============================================================
// SQLite Store
// ============================================================

// SQLiteStore - общий для всех сессий и переживающий рестарты вариант Store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init применяет миграцию.
func (s *SQLiteStore) Init(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, imagePath string) (models.SavedView, bool, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT image_path, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, saved_at
        FROM saved_views
        WHERE image_path = ?
    `, imagePath)

	v, err := scanView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SavedView{}, false, nil
		}
		return models.SavedView{}, false, err
	}
	return v, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, view models.SavedView) error {
	p, r := view.Pose.Position, view.Pose.Rotation
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO saved_views (image_path, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, saved_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(image_path) DO UPDATE SET
            pos_x = excluded.pos_x, pos_y = excluded.pos_y, pos_z = excluded.pos_z,
            rot_x = excluded.rot_x, rot_y = excluded.rot_y, rot_z = excluded.rot_z,
            saved_at = excluded.saved_at
    `, view.ImagePath,
		float64(p.X), float64(p.Y), float64(p.Z),
		float64(r.X), float64(r.Y), float64(r.Z),
		view.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save view %s: %w", view.ImagePath, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.SavedView, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT image_path, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, saved_at
        FROM saved_views
        ORDER BY image_path
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SavedView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (models.SavedView, error) {
	var (
		v       models.SavedView
		p, r    [3]float64
		savedAt string
	)
	if err := row.Scan(&v.ImagePath, &p[0], &p[1], &p[2], &r[0], &r[1], &r[2], &savedAt); err != nil {
		return models.SavedView{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return models.SavedView{}, fmt.Errorf("parse saved_at: %w", err)
	}
	v.Pose.Position = models.Vec3{X: float32(p[0]), Y: float32(p[1]), Z: float32(p[2])}
	v.Pose.Rotation = models.Vec3{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2])}
	v.SavedAt = t
	return v, nil
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
