package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/autosupport-ai/widget-backend/internal/metadata"
	"github.com/autosupport-ai/widget-backend/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS businesses (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	website          TEXT NOT NULL DEFAULT '',
	default_language TEXT NOT NULL DEFAULT 'en',
	created_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS faqs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	question    TEXT NOT NULL,
	answer      TEXT NOT NULL,
	language    TEXT NOT NULL DEFAULT 'en',
	is_active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS leads (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	business_id   INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	name          TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	language      TEXT NOT NULL DEFAULT '',
	topic         TEXT NOT NULL DEFAULT '',
	last_question TEXT NOT NULL DEFAULT '',
	last_answer   TEXT NOT NULL DEFAULT '',
	source_page   TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT 'open',
	meta          TEXT NOT NULL DEFAULT '{}',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id     INTEGER NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	language    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_faqs_business ON faqs(business_id, is_active);
CREATE INDEX IF NOT EXISTS idx_leads_business_created ON leads(business_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_lead_created ON messages(lead_id, created_at);
`

// SQLite is the Store implementation backed by a local SQLite database.
// Write transactions take the database write lock up front (_txlock
// immediate), which is what serializes concurrent turns on one lead.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if path == ":memory:" {
		// an in-memory database exists per connection; keep the pool at one
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLite database ping failed: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Ping verifies the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateBusiness inserts a business and assigns its ID.
func (s *SQLite) CreateBusiness(ctx context.Context, b *model.Business) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO businesses (name, website, default_language, created_at) VALUES (?, ?, ?, ?)`,
		b.Name, b.Website, b.DefaultLanguage, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert business: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// GetBusiness fetches a business by ID.
func (s *SQLite) GetBusiness(ctx context.Context, id int64) (*model.Business, error) {
	var b model.Business
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, website, default_language, created_at FROM businesses WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.Website, &b.DefaultLanguage, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return &b, nil
}

// DeleteBusiness removes a business; leads and messages cascade.
func (s *SQLite) DeleteBusiness(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateFAQ inserts an FAQ entry and assigns its ID.
func (s *SQLite) CreateFAQ(ctx context.Context, f *model.FAQ) error {
	active := 0
	if f.Active {
		active = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO faqs (business_id, question, answer, language, is_active) VALUES (?, ?, ?, ?, ?)`,
		f.BusinessID, f.Question, f.Answer, f.Language, active)
	if err != nil {
		return fmt.Errorf("failed to insert faq: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}

// ListActiveFAQs returns the active FAQ entries for a business.
func (s *SQLite) ListActiveFAQs(ctx context.Context, businessID int64) ([]model.FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, business_id, question, answer, language, is_active
		 FROM faqs WHERE business_id = ? AND is_active = 1 ORDER BY id`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	defer rows.Close()

	var faqs []model.FAQ
	for rows.Next() {
		var f model.FAQ
		var active int
		if err := rows.Scan(&f.ID, &f.BusinessID, &f.Question, &f.Answer, &f.Language, &active); err != nil {
			return nil, fmt.Errorf("failed to scan faq: %w", err)
		}
		f.Active = active != 0
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

// CreateLead inserts a lead and assigns its ID.
func (s *SQLite) CreateLead(ctx context.Context, lead *model.Lead) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertLead(ctx, tx, lead); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateLeadWithTurn inserts a lead and its first message pair in one
// transaction.
func (s *SQLite) CreateLeadWithTurn(ctx context.Context, lead *model.Lead, userMsg, assistantMsg *model.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertLead(ctx, tx, lead); err != nil {
		return err
	}

	userMsg.LeadID = lead.ID
	assistantMsg.LeadID = lead.ID
	if err := insertMessage(ctx, tx, userMsg); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, assistantMsg); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLead fetches a lead by ID.
func (s *SQLite) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	return scanLead(s.db.QueryRowContext(ctx, selectLead+` WHERE id = ?`, id))
}

// MutateLead reads the lead, applies the mutation, and writes it back in
// a single write transaction.
func (s *SQLite) MutateLead(ctx context.Context, id int64, apply func(*model.Lead) error) (*model.Lead, error) {
	return s.mutate(ctx, id, apply, nil, nil)
}

// AppendTurn applies the mutation and appends the user/assistant pair in
// a single write transaction.
func (s *SQLite) AppendTurn(ctx context.Context, id int64, apply func(*model.Lead) error, userMsg, assistantMsg *model.Message) (*model.Lead, error) {
	return s.mutate(ctx, id, apply, userMsg, assistantMsg)
}

func (s *SQLite) mutate(ctx context.Context, id int64, apply func(*model.Lead) error, userMsg, assistantMsg *model.Message) (*model.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lead, err := scanLead(tx.QueryRowContext(ctx, selectLead+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if err := apply(lead); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(lead.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead meta: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET name = ?, email = ?, country = ?, language = ?, topic = ?,
		 last_question = ?, last_answer = ?, source_page = ?, state = ?, meta = ?
		 WHERE id = ?`,
		lead.Name, lead.Email, lead.Country, lead.Language, lead.Topic,
		lead.LastQuestion, lead.LastAnswer, lead.SourcePage, string(lead.State), string(meta),
		lead.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	if userMsg != nil {
		userMsg.LeadID = lead.ID
		assistantMsg.LeadID = lead.ID
		if err := insertMessage(ctx, tx, userMsg); err != nil {
			return nil, err
		}
		if err := insertMessage(ctx, tx, assistantMsg); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return lead, nil
}

// ListLeads returns leads for a business ordered newest first.
func (s *SQLite) ListLeads(ctx context.Context, businessID int64, limit, offset int) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		selectLead+` WHERE business_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// ListMessages returns the full message log for a lead, oldest first.
func (s *SQLite) ListMessages(ctx context.Context, leadID int64) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, business_id, role, content, language, created_at
		 FROM messages WHERE lead_id = ? ORDER BY created_at ASC, id ASC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		if err := rows.Scan(&m.ID, &m.LeadID, &m.BusinessID, &role, &m.Content, &m.Language, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = model.Role(role)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns the message log length for a lead.
func (s *SQLite) CountMessages(ctx context.Context, leadID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE lead_id = ?`, leadID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

const selectLead = `SELECT id, business_id, name, email, country, language, topic,
	last_question, last_answer, source_page, state, meta, created_at FROM leads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*model.Lead, error) {
	var lead model.Lead
	var state, meta string
	err := row.Scan(&lead.ID, &lead.BusinessID, &lead.Name, &lead.Email, &lead.Country,
		&lead.Language, &lead.Topic, &lead.LastQuestion, &lead.LastAnswer, &lead.SourcePage,
		&state, &meta, &lead.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	lead.State = model.SessionState(state)
	lead.Meta = metadata.Bag{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &lead.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode lead meta: %w", err)
		}
	}
	return &lead, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLead(ctx context.Context, tx execer, lead *model.Lead) error {
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	if lead.State == "" {
		lead.State = model.SessionOpen
	}
	if lead.Meta == nil {
		lead.Meta = metadata.Bag{}
	}
	meta, err := json.Marshal(lead.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal lead meta: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO leads (business_id, name, email, country, language, topic,
		 last_question, last_answer, source_page, state, meta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.BusinessID, lead.Name, lead.Email, lead.Country, lead.Language, lead.Topic,
		lead.LastQuestion, lead.LastAnswer, lead.SourcePage, string(lead.State), string(meta),
		lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	lead.ID, err = res.LastInsertId()
	return err
}

func insertMessage(ctx context.Context, tx execer, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (lead_id, business_id, role, content, language, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.LeadID, m.BusinessID, string(m.Role), m.Content, m.Language, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}
