package configuration

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type Sqlite struct {
	// file path of the database, ":memory:" for an in-memory database
	File string `json:"file"`
}

func (config Sqlite) OpenDB() (*sql.DB, error) {
	path := config.File
	if path == "" {
		path = ":memory:"
	}
	return sql.Open("sqlite", path)
}
