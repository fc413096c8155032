package db

import (
	"strings"

	"gorm.io/gorm"
)

// Dialect names as reported by the gorm dialector.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectName returns the connection's dialect name, or "" when no dialector
// is attached.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection is backed by SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveLikeExpr builds the filter expression the admin email search
// uses. Postgres has ILIKE; SQLite gets a lowered LIKE, paired with
// NormalizeLikePattern on the argument side.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return "LOWER(" + column + ") LIKE ?"
	}
	return column + " ILIKE ?"
}

// NormalizeLikePattern prepares a pattern for CaseInsensitiveLikeExpr.
func NormalizeLikePattern(conn *gorm.DB, pattern string) string {
	if IsSQLite(conn) {
		return strings.ToLower(pattern)
	}
	return pattern
}
