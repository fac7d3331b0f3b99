// Package tradestore keeps an append-only sqlite record of the trade
// events observed over a session's lifetime. The protocol engine never
// reads it; the orchestration loop writes it for post-mortems.
package tradestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"steamtrade/lib/scrapers/steam/trade"

	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS trade_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	actor TEXT NOT NULL,
	action INTEGER NOT NULL,
	event_time INTEGER NOT NULL,
	payload TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS trade_events_by_session
	ON trade_events (session, id);
`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: db}, nil
}

// Push appends the events of one poll under the given session label.
func (s Store) Push(ctx context.Context, session string, events []trade.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trade_events (session, actor, action, event_time, payload, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			session, ev.SteamId, int(ev.Action), int64(ev.Timestamp), string(payload), now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Pull returns every event recorded under the session label, oldest
// first.
func (s Store) Pull(ctx context.Context, session string) ([]trade.TradeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM trade_events
		WHERE session = ? ORDER BY id ASC`,
		session,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []trade.TradeEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev trade.TradeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
