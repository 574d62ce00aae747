package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

const recordColumns = `id, artist, album, price, quantity, format, category, mbid, tracklist, version, created_at, updated_at`

var filterColumns = map[domain.Field]string{
	domain.FieldArtist:   "artist",
	domain.FieldAlbum:    "album",
	domain.FieldFormat:   "format",
	domain.FieldCategory: "category",
}

// SQLAdapter stores records and orders through database/sql. The statements
// stick to the subset shared by MySQL and SQLite.
type SQLAdapter struct {
	db *sql.DB
}

func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (m *SQLAdapter) CreateRecord(ctx context.Context, record domain.Record) (*domain.Record, error) {
	now := time.Now().UTC()
	record.ID = uuid.NewString()
	record.Version = 0
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Tracklist == nil {
		record.Tracklist = []string{}
	}

	tracklist, err := json.Marshal(record.Tracklist)
	if err != nil {
		return nil, fmt.Errorf("encode tracklist: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Artist, record.Album, record.Price, record.Quantity,
		string(record.Format), string(record.Category), record.MBID, string(tracklist),
		record.Version, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	return &record, nil
}

func (m *SQLAdapter) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	return getRecord(ctx, m.db, id)
}

func (m *SQLAdapter) FindRecords(ctx context.Context, filter domain.RecordFilter, offset, limit int) ([]domain.Record, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}
	args = append(args, limit, offset)

	rows, err := m.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records`+where+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func (m *SQLAdapter) CountRecords(ctx context.Context, filter domain.RecordFilter) (int, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return 0, err
	}

	var count int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (m *SQLAdapter) UpdateRecord(ctx context.Context, record domain.Record) (*domain.Record, error) {
	if record.Tracklist == nil {
		record.Tracklist = []string{}
	}
	tracklist, err := json.Marshal(record.Tracklist)
	if err != nil {
		return nil, fmt.Errorf("encode tracklist: %w", err)
	}

	now := time.Now().UTC()
	result, err := m.db.ExecContext(ctx, `
		UPDATE records
		SET artist = ?, album = ?, price = ?, quantity = ?, format = ?, category = ?,
			mbid = ?, tracklist = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		record.Artist, record.Album, record.Price, record.Quantity,
		string(record.Format), string(record.Category), record.MBID, string(tracklist), now,
		record.ID, record.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrOptimisticLock
	}

	record.Version++
	record.UpdatedAt = now
	return &record, nil
}

// AdjustQuantity applies delta only when the resulting stock stays within
// [0, domain.MaxQuantity]. The guard lives in the WHERE clause, so concurrent
// calls are serialized by the database row lock.
func (m *SQLAdapter) AdjustQuantity(ctx context.Context, id string, delta int) (*domain.Record, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE records
		SET quantity = quantity + ?, version = version + 1, updated_at = ?
		WHERE id = ? AND quantity + ? >= 0 AND quantity + ? <= ?`,
		delta, time.Now().UTC(), id, delta, delta, domain.MaxQuantity,
	)
	if err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}

	rows, _ := result.RowsAffected()
	rec, err := getRecord(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if rec == nil {
			return nil, nil
		}
		if rec.Quantity+delta > domain.MaxQuantity {
			return nil, domain.ErrQuantityOverflow
		}
		return nil, domain.ErrInsufficientStock
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (m *SQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, request_id, record_id, quantity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.RequestID, order.RecordID, order.Quantity, string(order.Status),
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *SQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(m.db.QueryRowContext(ctx, `
		SELECT id, request_id, record_id, quantity, status, created_at, updated_at
		FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (m *SQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, request_id, record_id, quantity, status, created_at, updated_at
		FROM orders ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q querier, id string) (*domain.Record, error) {
	rec, err := scanRecord(q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		format    string
		category  string
		tracklist string
	)
	err := row.Scan(
		&rec.ID, &rec.Artist, &rec.Album, &rec.Price, &rec.Quantity, &format, &category,
		&rec.MBID, &tracklist, &rec.Version, sqlTime{&rec.CreatedAt}, sqlTime{&rec.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	rec.Format = domain.Format(format)
	rec.Category = domain.Category(category)
	rec.Tracklist = []string{}
	if tracklist != "" {
		if err := json.Unmarshal([]byte(tracklist), &rec.Tracklist); err != nil {
			return nil, fmt.Errorf("decode tracklist of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(&order.ID, &order.RequestID, &order.RecordID, &order.Quantity, &status,
		sqlTime{&order.CreatedAt}, sqlTime{&order.UpdatedAt})
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	return &order, nil
}

func whereClause(filter domain.RecordFilter) (string, []any, error) {
	if filter.Empty() {
		return "", nil, nil
	}

	var (
		clauses []string
		args    []any
	)
	if len(filter.AnyOf) > 0 {
		var ors []string
		for _, c := range filter.AnyOf {
			expr, arg, err := conditionSQL(c)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, expr)
			args = append(args, arg)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	for _, c := range filter.AllOf {
		expr, arg, err := conditionSQL(c)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, expr)
		args = append(args, arg)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func conditionSQL(c domain.Condition) (string, any, error) {
	column, ok := filterColumns[c.Field]
	if !ok {
		return "", nil, fmt.Errorf("unsupported filter field %q", c.Field)
	}
	switch c.Match {
	case domain.MatchEquals:
		return column + " = ?", c.Value, nil
	case domain.MatchContains:
		return "LOWER(" + column + ") LIKE ? ESCAPE '!'", "%" + escapeLike(strings.ToLower(c.Value)) + "%", nil
	default:
		return "", nil, fmt.Errorf("unsupported match %d on %q", c.Match, c.Field)
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
