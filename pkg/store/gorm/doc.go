// Package gorm provides the GORM-based implementation of the store interfaces
// defined in the parent store package.
//
// All statements are parameterised and written so that they run unchanged on
// PostgreSQL and SQLite: catalog rows are resolved with
// INSERT ... ON CONFLICT DO NOTHING followed by a lookup, association rows are
// upserted with INSERT ... ON CONFLICT DO UPDATE.
package gorm
