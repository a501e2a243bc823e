// Package repository implements the domain store interfaces on SQLite.
package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/featherbox/featherbox/internal/domain"
)

func newID() string {
	return uuid.NewString()
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return domain.ErrStore(op, err)
}

func nullStrFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTimeFromPtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtrFromNull(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
