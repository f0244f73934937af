package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" database/sql driver
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"gastos/internal/core"
	"gastos/internal/log"
)

// Dialect selects the SQL flavour of a SQLRepository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Timestamps are stored as fixed-width UTC text so that they sort
// chronologically in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ Repository = (*SQLRepository)(nil)

type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	feed    *Feed
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return open(DialectSQLite, dsn)
}

// NewPostgresRepository connects to dsn through pgx and migrates the schema.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return open(DialectPostgres, dsn)
}

func open(d Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{
		db:      db,
		dialect: d,
		feed:    NewFeed(),
		now:     time.Now,
	}, nil
}

func (r *SQLRepository) Close() error {
	r.feed.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Subscribe implements ChangeFeed.
func (r *SQLRepository) Subscribe(buffer int) (<-chan Change, func()) {
	return r.feed.Subscribe(buffer)
}

func (r *SQLRepository) publish(entity Entity, op Op, id string) {
	r.feed.Publish(Change{Entity: entity, Op: op, ID: id, At: r.now()})
}

// q rewrites ? placeholders to $n for postgres.
func (r *SQLRepository) q(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

const expenseColumns = "id, title, amount, spent_at, category_id, account_id"

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                                   core.Expense
		amount                              string
		title, spentAt, categoryID, account sql.NullString
	)
	if err := s.Scan(&e.ID, &title, &amount, &spentAt, &categoryID, &account); err != nil {
		return core.Expense{}, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount of expense %s: %w", e.ID, err)
	}
	e.Amount = amt
	e.Title = fromNull(title)
	e.CategoryID = fromNull(categoryID)
	e.AccountID = fromNull(account)
	if spentAt.Valid {
		t, err := time.Parse(timeLayout, spentAt.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse date of expense %s: %w", e.ID, err)
		}
		e.Date = core.Some(t)
	}
	return e, nil
}

// ListExpenses implements ExpenseStore.
func (r *SQLRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT `+expenseColumns+` FROM expenses
		ORDER BY CASE WHEN spent_at IS NULL THEN 1 ELSE 0 END, spent_at, created_at, id`))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	tags, err := r.expenseTags(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].TagIDs = tags[expenses[i].ID]
	}
	return expenses, nil
}

// GetExpense implements ExpenseStore.
func (r *SQLRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`), id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}

	tags, err := r.expenseTags(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	e.TagIDs = tags[id]
	return e, nil
}

// expenseTags loads tag ids per expense, for one expense when id is set.
func (r *SQLRepository) expenseTags(ctx context.Context, id string) (map[string][]string, error) {
	query := `SELECT expense_id, tag_id FROM expense_tags`
	var args []any
	if id != "" {
		query += ` WHERE expense_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY expense_id, tag_id`

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list expense tags: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var expenseID, tagID string
		if err := rows.Scan(&expenseID, &tagID); err != nil {
			return nil, fmt.Errorf("scan expense tag: %w", err)
		}
		out[expenseID] = append(out[expenseID], tagID)
	}
	return out, rows.Err()
}

// CreateExpense implements ExpenseStore.
func (r *SQLRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.checkRefs(ctx, tx, e); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, r.q(`INSERT INTO expenses
		(id, title, amount, spent_at, category_id, account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, toNull(e.Title), e.Amount.String(), timeToNull(e.Date),
		toNull(e.CategoryID), toNull(e.AccountID), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	if err := r.insertTags(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpCreate,
		log.FieldEntityID, e.ID,
		"amount", e.Amount.String(),
		"dialect", r.dialect)
	r.publish(EntityExpense, OpCreate, e.ID)
	return nil
}

// UpdateExpense implements ExpenseStore. Tags are replaced wholesale.
func (r *SQLRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.checkRefs(ctx, tx, e); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, r.q(`UPDATE expenses
		SET title = ?, amount = ?, spent_at = ?, category_id = ?, account_id = ?
		WHERE id = ?`),
		toNull(e.Title), e.Amount.String(), timeToNull(e.Date),
		toNull(e.CategoryID), toNull(e.AccountID), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := expectRow(res, "expense", e.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM expense_tags WHERE expense_id = ?`), e.ID); err != nil {
		return fmt.Errorf("clear expense tags: %w", err)
	}
	if err := r.insertTags(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	r.publish(EntityExpense, OpUpdate, e.ID)
	return nil
}

// checkRefs looks up every catalog entry e points at, so that a dangling
// reference fails with ErrNotFound on every dialect instead of a driver
// specific foreign key error.
func (r *SQLRepository) checkRefs(ctx context.Context, tx *sql.Tx, e core.Expense) error {
	if id, ok := e.CategoryID.Get(); ok {
		if err := r.refExists(ctx, tx, categoriesTable, id); err != nil {
			return err
		}
	}
	if id, ok := e.AccountID.Get(); ok {
		if err := r.refExists(ctx, tx, accountsTable, id); err != nil {
			return err
		}
	}
	for _, id := range core.NormalizeTags(e.TagIDs) {
		if err := r.refExists(ctx, tx, tagsTable, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) refExists(ctx context.Context, tx *sql.Tx, t catalogTable, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, r.q("SELECT 1 FROM "+t.name+" WHERE id = ?"), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", t.entity, id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("look up %s %s: %w", t.entity, id, err)
	}
	return nil
}

func (r *SQLRepository) insertTags(ctx context.Context, tx *sql.Tx, e core.Expense) error {
	for _, tagID := range core.NormalizeTags(e.TagIDs) {
		_, err := tx.ExecContext(ctx, r.q(`INSERT INTO expense_tags (expense_id, tag_id) VALUES (?, ?)`), e.ID, tagID)
		if err != nil {
			return fmt.Errorf("insert expense tag %s: %w", tagID, err)
		}
	}
	return nil
}

// DeleteExpense implements ExpenseStore.
func (r *SQLRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := expectRow(res, "expense", id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpDelete,
		log.FieldEntityID, id)
	r.publish(EntityExpense, OpDelete, id)
	return nil
}

// Catalog tables share one shape.
type namedRow struct {
	ID   string
	Name core.Optional[string]
}

type catalogTable struct {
	name   string
	entity Entity
}

var (
	categoriesTable = catalogTable{name: "categories", entity: EntityCategory}
	tagsTable       = catalogTable{name: "tags", entity: EntityTag}
	accountsTable   = catalogTable{name: "accounts", entity: EntityAccount}
)

func (r *SQLRepository) listNamed(ctx context.Context, t catalogTable) ([]namedRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM `+t.name+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		var (
			row  namedRow
			name sql.NullString
		)
		if err := rows.Scan(&row.ID, &name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.entity, err)
		}
		row.Name = fromNull(name)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLRepository) createNamed(ctx context.Context, t catalogTable, row namedRow) error {
	if strings.TrimSpace(row.ID) == "" {
		return core.ErrEmptyID
	}
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO `+t.name+` (id, name, created_at) VALUES (?, ?, ?)`),
		row.ID, toNull(row.Name), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.entity, err)
	}
	r.publish(t.entity, OpCreate, row.ID)
	return nil
}

func (r *SQLRepository) updateNamed(ctx context.Context, t catalogTable, row namedRow) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE `+t.name+` SET name = ? WHERE id = ?`), toNull(row.Name), row.ID)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.entity, err)
	}
	if err := expectRow(res, string(t.entity), row.ID); err != nil {
		return err
	}
	r.publish(t.entity, OpUpdate, row.ID)
	return nil
}

// deleteNamed relies on the foreign keys to detach expenses.
func (r *SQLRepository) deleteNamed(ctx context.Context, t catalogTable, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM `+t.name+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.entity, err)
	}
	if err := expectRow(res, string(t.entity), id); err != nil {
		return err
	}
	r.publish(t.entity, OpDelete, id)
	return nil
}

func convertRows[T core.Category | core.Tag | core.Account](rows []namedRow) []T {
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = T(row)
	}
	return out
}

func (r *SQLRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.listNamed(ctx, categoriesTable)
	return convertRows[core.Category](rows), err
}

func (r *SQLRepository) CreateCategory(ctx context.Context, c core.Category) error {
	return r.createNamed(ctx, categoriesTable, namedRow(c))
}

func (r *SQLRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	return r.updateNamed(ctx, categoriesTable, namedRow(c))
}

func (r *SQLRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteNamed(ctx, categoriesTable, id)
}

func (r *SQLRepository) ListTags(ctx context.Context) ([]core.Tag, error) {
	rows, err := r.listNamed(ctx, tagsTable)
	return convertRows[core.Tag](rows), err
}

func (r *SQLRepository) CreateTag(ctx context.Context, t core.Tag) error {
	return r.createNamed(ctx, tagsTable, namedRow(t))
}

func (r *SQLRepository) UpdateTag(ctx context.Context, t core.Tag) error {
	return r.updateNamed(ctx, tagsTable, namedRow(t))
}

func (r *SQLRepository) DeleteTag(ctx context.Context, id string) error {
	return r.deleteNamed(ctx, tagsTable, id)
}

func (r *SQLRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.listNamed(ctx, accountsTable)
	return convertRows[core.Account](rows), err
}

func (r *SQLRepository) CreateAccount(ctx context.Context, a core.Account) error {
	return r.createNamed(ctx, accountsTable, namedRow(a))
}

func (r *SQLRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	return r.updateNamed(ctx, accountsTable, namedRow(a))
}

func (r *SQLRepository) DeleteAccount(ctx context.Context, id string) error {
	return r.deleteNamed(ctx, accountsTable, id)
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func toNull(o core.Optional[string]) sql.NullString {
	v, ok := o.Get()
	return sql.NullString{String: v, Valid: ok}
}

func fromNull(n sql.NullString) core.Optional[string] {
	if !n.Valid {
		return core.None[string]()
	}
	return core.Some(n.String)
}

func timeToNull(o core.Optional[time.Time]) sql.NullString {
	t, ok := o.Get()
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
