package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names match the database/sql driver names.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

type dialect struct {
	name   string
	schema []string
}

var dialects = map[string]dialect{
	DialectSQLite: {
		name: DialectSQLite,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				filename TEXT NOT NULL,
				file_size INTEGER NOT NULL DEFAULT 0,
				content_type TEXT NOT NULL DEFAULT '',
				file_path TEXT NOT NULL,
				status TEXT NOT NULL,
				text_content TEXT,
				vector TEXT,
				risk_score INTEGER NOT NULL DEFAULT 0,
				pii_stats TEXT,
				failure_reason TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
		},
	},
	DialectPostgres: {
		name: DialectPostgres,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				filename TEXT NOT NULL,
				file_size BIGINT NOT NULL DEFAULT 0,
				content_type TEXT NOT NULL DEFAULT '',
				file_path TEXT NOT NULL,
				status TEXT NOT NULL,
				text_content TEXT,
				vector TEXT,
				risk_score INTEGER NOT NULL DEFAULT 0,
				pii_stats TEXT,
				failure_reason TEXT,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
		},
	},
	DialectMySQL: {
		name: DialectMySQL,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id VARCHAR(36) PRIMARY KEY,
				owner_id VARCHAR(255) NOT NULL,
				filename VARCHAR(1024) NOT NULL,
				file_size BIGINT NOT NULL DEFAULT 0,
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				file_path VARCHAR(2048) NOT NULL,
				status VARCHAR(16) NOT NULL,
				text_content LONGTEXT,
				vector LONGTEXT,
				risk_score INT NOT NULL DEFAULT 0,
				pii_stats TEXT,
				failure_reason VARCHAR(255),
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				INDEX idx_documents_owner (owner_id, created_at),
				INDEX idx_documents_status (status)
			) CHARACTER SET utf8mb4`,
		},
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q (supported: sqlite3, postgres, mysql)", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders into the dialect's native form.
func (d dialect) rebind(query string) string {
	if d.name != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
