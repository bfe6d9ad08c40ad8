// Package sqlite implements the archive and roster stores on SQLite files
// maintained by an external collector. Both databases are opened strictly
// read-only; this service never creates, migrates or writes them.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Mymoliy/echotrace/internal/chatdb/dbm"
	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/internal/model"
)

// ArchiveGroup is the dbm file group holding the message archive.
const ArchiveGroup = "archive"

// MessageSource reads the message archive. Expected schema:
//
//	messages(id INTEGER PRIMARY KEY, talker TEXT, sender TEXT,
//	         type INTEGER, create_time INTEGER, content TEXT)
//
// with an index on (talker, create_time). create_time is epoch seconds.
// Handles come from the manager's read-only cache and survive across calls;
// the manager reopens them when the collector republishes the file.
type MessageSource struct {
	dbm *dbm.DBManager
}

func NewMessageSource(manager *dbm.DBManager) *MessageSource {
	return &MessageSource{dbm: manager}
}

// FetchMessages returns the conversation's messages with create_time inside
// the inclusive [startUnix, endUnix] window, ordered by time then row id.
func (s *MessageSource) FetchMessages(ctx context.Context, talker string, startUnix, endUnix int64) ([]*model.Message, error) {
	db, err := s.dbm.OpenDB(ArchiveGroup)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, talker, sender, type, create_time, content
		FROM messages
		WHERE talker = ? AND create_time BETWEEN ? AND ?
		ORDER BY create_time, id`,
		talker, startUnix, endUnix)
	if err != nil {
		return nil, errors.StoreUnavailable("archive", err)
	}
	defer rows.Close()

	messages := make([]*model.Message, 0, 64)
	for rows.Next() {
		var (
			m       model.Message
			sender  sql.NullString
			content sql.NullString
			created int64
		)
		if err := rows.Scan(&m.Seq, &m.Talker, &sender, &m.Type, &created, &content); err != nil {
			return nil, errors.StoreUnavailable("archive", err)
		}
		m.Sender = sender.String
		m.Content = content.String
		m.Time = time.Unix(created, 0)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("archive", err)
	}
	return messages, nil
}

// MediaTypeHistogram counts the window's messages per type code.
func (s *MessageSource) MediaTypeHistogram(ctx context.Context, talker string, start, end time.Time) (map[int]int, error) {
	db, err := s.dbm.OpenDB(ArchiveGroup)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT type, COUNT(*)
		FROM messages
		WHERE talker = ? AND create_time BETWEEN ? AND ?
		GROUP BY type`,
		talker, start.Unix(), end.Unix())
	if err != nil {
		return nil, errors.StoreUnavailable("archive", err)
	}
	defer rows.Close()

	hist := make(map[int]int)
	for rows.Next() {
		var code, count int
		if err := rows.Scan(&code, &count); err != nil {
			return nil, errors.StoreUnavailable("archive", err)
		}
		hist[code] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("archive", err)
	}
	return hist, nil
}

// ActiveHourHistogram counts the window's messages per local hour of day.
func (s *MessageSource) ActiveHourHistogram(ctx context.Context, talker string, start, end time.Time) (map[int]int, error) {
	db, err := s.dbm.OpenDB(ArchiveGroup)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT CAST(strftime('%H', create_time, 'unixepoch', 'localtime') AS INTEGER) AS hour, COUNT(*)
		FROM messages
		WHERE talker = ? AND create_time BETWEEN ? AND ?
		GROUP BY hour`,
		talker, start.Unix(), end.Unix())
	if err != nil {
		return nil, errors.StoreUnavailable("archive", err)
	}
	defer rows.Close()

	hist := make(map[int]int)
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, errors.StoreUnavailable("archive", err)
		}
		hist[hour] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("archive", err)
	}
	return hist, nil
}
