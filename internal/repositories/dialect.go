package repositories

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateKey is returned when an insert collides with an existing primary/unique key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKey is returned when a row references a parent that does not exist.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrNotFound is returned by mutations that matched no row.
	ErrNotFound = errors.New("record not found")
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Name string
	// numbered placeholders (:1, :2) instead of ?
	numbered bool
	// inserts return generated ids through RETURNING ... INTO instead of LastInsertId
	returningInto bool
}

var (
	SQLiteDialect = Dialect{Name: "sqlite3"}
	OracleDialect = Dialect{Name: "godror", numbered: true, returningInto: true}
)

// DialectFor maps a DB_DRIVER value to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case SQLiteDialect.Name:
		return SQLiteDialect, nil
	case OracleDialect.Name:
		return OracleDialect, nil
	}
	return Dialect{}, fmt.Errorf("no SQL dialect for driver %q", driver)
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(":" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// translate maps driver constraint errors onto the package sentinels.
func (d Dialect) translate(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ErrForeignKey, err)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ORA-00001"):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	case strings.Contains(msg, "ORA-02291"):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	}
	return err
}
