// Package ledger provides the SQLite-backed account store behind the mock
// account service.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrCardNotFound    = errors.New("card not found")
)

// Card statuses.
const (
	CardActive   = "active"
	CardBlocked  = "blocked"
	CardInactive = "inactive"
)

// Account is an account row with its cards.
type Account struct {
	ID      string  `json:"account_id"`
	Balance float64 `json:"balance"`
	Cards   []Card  `json:"cards"`
}

// Card is a payment card identified by its last four digits within an account.
type Card struct {
	Last4  string `json:"last4"`
	Status string `json:"status"`
}

// Dispute is a transaction dispute raised against an account.
type Dispute struct {
	ID            string  `json:"dispute_id"`
	AccountID     string  `json:"account_id"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Reason        string  `json:"reason"`
	Amount        float64 `json:"amount,omitempty"`
	Status        string  `json:"status"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at dbPath, initializes the
// schema, and seeds demo data on first run. Parent directories are created
// if they do not exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := seed(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed ledger: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		balance REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cards (
		account_id TEXT NOT NULL,
		last4 TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (account_id, last4),
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		transaction_id TEXT,
		reason TEXT NOT NULL,
		amount REAL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_disputes_account_id ON disputes(account_id);
	`
	_, err := db.Exec(schema)
	return err
}

// seed installs the demo fixture set. INSERT OR IGNORE keeps reopening a
// previously used database idempotent without clobbering state changed since
// (for example cards blocked through the service).
func seed(db *sql.DB) error {
	accounts := []struct {
		id      string
		balance float64
		last4   string
		status  string
	}{
		{"acct_123", 1250.75, "4242", CardActive},
		{"acct_124", 3420.10, "1111", CardActive},
		{"acct_125", 875.00, "2222", CardBlocked},
		{"acct_126", 5600.50, "3333", CardActive},
		{"acct_127", 150.25, "4444", CardInactive},
		{"acct_128", 9999.99, "5555", CardActive},
	}
	disputes := []Dispute{
		{ID: "disp_001", AccountID: "acct_124", Reason: "fraudulent transaction", Amount: 200.00, Status: "open"},
		{ID: "disp_002", AccountID: "acct_125", Reason: "duplicate charge", Amount: 75.00, Status: "open"},
		{ID: "disp_003", AccountID: "acct_126", Reason: "service not rendered", Amount: 560.50, Status: "open"},
		{ID: "disp_004", AccountID: "acct_127", Reason: "unauthorized withdrawal", Amount: 100.00, Status: "open"},
		{ID: "disp_005", AccountID: "acct_128", Reason: "incorrect billing", Amount: 500.00, Status: "open"},
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range accounts {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO accounts (id, balance) VALUES (?, ?)`, a.id, a.balance); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO cards (account_id, last4, status) VALUES (?, ?, ?)`, a.id, a.last4, a.status); err != nil {
			return err
		}
	}
	for _, d := range disputes {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO disputes (id, account_id, reason, amount, status) VALUES (?, ?, ?, ?, ?)`,
			d.ID, d.AccountID, d.Reason, d.Amount, d.Status,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetBalance returns the balance for an account.
func (s *Store) GetBalance(ctx context.Context, accountID string) (float64, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// GetAccount returns an account with its cards.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	acct := &Account{ID: accountID}
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&acct.Balance)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT last4, status FROM cards WHERE account_id = ? ORDER BY last4`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.Last4, &c.Status); err != nil {
			return nil, err
		}
		acct.Cards = append(acct.Cards, c)
	}
	return acct, rows.Err()
}

// ListAccounts returns all accounts with their cards, ordered by ID.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	accounts := make([]*Account, 0, len(ids))
	for _, id := range ids {
		acct, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// BlockCard marks a card blocked. Returns ErrAccountNotFound when the
// account does not exist and ErrCardNotFound when the account has no card
// with the given last four digits. Blocking an already blocked card succeeds.
func (s *Store) BlockCard(ctx context.Context, accountID, last4 string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, accountID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE cards SET status = ? WHERE account_id = ? AND last4 = ?`,
		CardBlocked, accountID, last4,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCardNotFound
	}
	return nil
}

// CreateDispute records a new open dispute and returns it.
func (s *Store) CreateDispute(ctx context.Context, id, accountID, transactionID, reason string) (*Dispute, error) {
	d := &Dispute{
		ID:            id,
		AccountID:     accountID,
		TransactionID: transactionID,
		Reason:        reason,
		Status:        "open",
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO disputes (id, account_id, transaction_id, reason, status) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.AccountID, d.TransactionID, d.Reason, d.Status,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CountDisputes returns the total number of disputes.
func (s *Store) CountDisputes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM disputes`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
