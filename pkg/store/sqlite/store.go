// Package sqlite provides a SQLite-backed reference spectrum library
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/RamanKey/pkg/core"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Schema version written to HeaderTable
	schemaVersion = 1
)

// Header describes the library file
type Header struct {
	Version          int
	CreationDate     string
	LastModifiedDate string
	Description      string
}

// Store is a reference library persisted in a SQLite file. It implements
// core.Library; lookup failures through that interface are reported by Err.
type Store struct {
	db       *sql.DB
	path     string
	putStmt  *sql.Stmt
	idStmt   *sql.Stmt
	delStmt  *sql.Stmt
	metaStmt *sql.Stmt

	mu       sync.Mutex
	err      error
	modified bool
}

var _ core.Library = (*Store)(nil)

// Open opens or creates the library at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.ensureHeader(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// createTables creates the required database schema
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RecordTable (
		RecordId INTEGER PRIMARY KEY,
		Name TEXT NOT NULL UNIQUE,
		blobWavenumber BLOB,
		blobIntensity BLOB,
		blobPeaks BLOB,
		CreationDate TEXT
	);

	CREATE TABLE IF NOT EXISTS MetadataTable (
		RecordId INTEGER NOT NULL REFERENCES RecordTable(RecordId),
		Key TEXT NOT NULL,
		Value TEXT,
		PRIMARY KEY (RecordId, Key)
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// ensureHeader writes the header row of a new library
func (s *Store) ensureHeader() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM HeaderTable`).Scan(&n); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if n > 0 {
		return nil
	}

	today := time.Now().Format(headerDateFormat)
	_, err := s.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, today, today, "")
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}
	return nil
}

// prepareStatements prepares SQL statements for record insertion
func (s *Store) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO RecordTable (Name, blobWavenumber, blobIntensity, blobPeaks, CreationDate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(Name) DO UPDATE SET
			blobWavenumber = excluded.blobWavenumber,
			blobIntensity = excluded.blobIntensity,
			blobPeaks = excluded.blobPeaks
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record statement: %w", err)
	}

	s.idStmt, err = s.db.Prepare(`SELECT RecordId FROM RecordTable WHERE Name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare id statement: %w", err)
	}

	s.delStmt, err = s.db.Prepare(`DELETE FROM MetadataTable WHERE RecordId = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare metadata delete statement: %w", err)
	}

	s.metaStmt, err = s.db.Prepare(`INSERT INTO MetadataTable (RecordId, Key, Value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metadata statement: %w", err)
	}

	return nil
}

// Put inserts a record, replacing any record with the same name. A
// replaced record keeps its position in Names.
func (s *Store) Put(rec *core.Record) error {
	if rec == nil || rec.Name == "" {
		return &core.DataError{Field: "Name", Message: "record has no name"}
	}
	if err := rec.Spectrum().Validate(); err != nil {
		return fmt.Errorf("record %s: %w", rec.Name, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Stmt(s.putStmt).Exec(
		rec.Name,
		encodeFloat64(rec.Wavenumbers),
		encodeFloat64(rec.Intensities),
		encodeFloat64(rec.Peaks),
		time.Now().Format(headerDateFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.Name, err)
	}

	var id int64
	if err := tx.Stmt(s.idStmt).QueryRow(rec.Name).Scan(&id); err != nil {
		return fmt.Errorf("failed to resolve record %s: %w", rec.Name, err)
	}

	// Replace metadata
	if _, err := tx.Stmt(s.delStmt).Exec(id); err != nil {
		return fmt.Errorf("failed to clear metadata for %s: %w", rec.Name, err)
	}
	meta := tx.Stmt(s.metaStmt)
	for k, v := range rec.Metadata {
		if _, err := meta.Exec(id, k, v); err != nil {
			return fmt.Errorf("failed to insert metadata %s for %s: %w", k, rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record %s: %w", rec.Name, err)
	}

	s.mu.Lock()
	s.modified = true
	s.mu.Unlock()
	return nil
}

// Lookup loads the record named name. It returns (nil, nil) when no such
// record exists.
func (s *Store) Lookup(name string) (*core.Record, error) {
	var id int64
	var wn, inten, pk []byte
	err := s.db.QueryRow(`
		SELECT RecordId, blobWavenumber, blobIntensity, blobPeaks
		FROM RecordTable WHERE Name = ?
	`, name).Scan(&id, &wn, &inten, &pk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", name, err)
	}

	rec := &core.Record{Name: name}
	if rec.Wavenumbers, err = decodeFloat64(wn); err != nil {
		return nil, fmt.Errorf("record %s wavenumbers: %w", name, err)
	}
	if rec.Intensities, err = decodeFloat64(inten); err != nil {
		return nil, fmt.Errorf("record %s intensities: %w", name, err)
	}
	if rec.Peaks, err = decodeFloat64(pk); err != nil {
		return nil, fmt.Errorf("record %s peaks: %w", name, err)
	}

	rec.Metadata, err = s.loadMetadata(id)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", name, err)
	}
	return rec, nil
}

func (s *Store) loadMetadata(id int64) (core.Metadata, error) {
	rows, err := s.db.Query(`SELECT Key, Value FROM MetadataTable WHERE RecordId = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	md := make(core.Metadata)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		md[k] = v.String
	}
	return md, rows.Err()
}

// ListNames returns record names in insertion order
func (s *Store) ListNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT Name FROM RecordTable ORDER BY RecordId`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan record name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Names implements core.Library
func (s *Store) Names() []string {
	names, err := s.ListNames()
	if err != nil {
		s.setErr(err)
		return nil
	}
	return names
}

// Get implements core.Library
func (s *Store) Get(name string) (*core.Record, bool) {
	rec, err := s.Lookup(name)
	if err != nil {
		s.setErr(err)
		return nil, false
	}
	return rec, rec != nil
}

// Records loads every record in insertion order
func (s *Store) Records() ([]*core.Record, error) {
	names, err := s.ListNames()
	if err != nil {
		return nil, err
	}

	records := make([]*core.Record, 0, len(names))
	for _, name := range names {
		rec, err := s.Lookup(name)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Count returns the number of records
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM RecordTable`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Header returns the library header
func (s *Store) Header() (Header, error) {
	var h Header
	var created, modified, desc sql.NullString
	err := s.db.QueryRow(`
		SELECT version, CreationDate, LastModifiedDate, Description FROM HeaderTable LIMIT 1
	`).Scan(&h.Version, &created, &modified, &desc)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read header: %w", err)
	}
	h.CreationDate = created.String
	h.LastModifiedDate = modified.String
	h.Description = desc.String
	return h, nil
}

// SetDescription updates the header description
func (s *Store) SetDescription(desc string) error {
	if _, err := s.db.Exec(`UPDATE HeaderTable SET Description = ?`, desc); err != nil {
		return fmt.Errorf("failed to update header: %w", err)
	}
	return nil
}

// Err returns the first error hit through the core.Library methods
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Close stamps the modification date when records were written and closes
// the database
func (s *Store) Close() error {
	s.mu.Lock()
	modified := s.modified
	s.mu.Unlock()

	if modified {
		_, err := s.db.Exec(`UPDATE HeaderTable SET LastModifiedDate = ?`, time.Now().Format(headerDateFormat))
		if err != nil {
			s.db.Close()
			return fmt.Errorf("failed to update header: %w", err)
		}
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{s.putStmt, s.idStmt, s.delStmt, s.metaStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeFloat64 decodes a little-endian float64 blob
func decodeFloat64(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	if len(buf) == 0 {
		return nil, nil
	}
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}
