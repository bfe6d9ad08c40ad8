package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Mymoliy/echotrace/internal/chatdb/dbm"
	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/internal/model"
)

// RosterGroup is the dbm file group holding the contact roster.
const RosterGroup = "roster"

// maxSQLVars caps IN-clause parameters per statement, safely below
// SQLITE_MAX_VARIABLE_NUMBER on all supported builds.
const maxSQLVars = 500

// RosterSource reads the contact roster. Expected schema:
//
//	session(id, username, is_group, last_time)
//	contact(id, username, nick_name, remark, avatar_url)
//	chat_room(id, username)
//	chat_room_member(room_id, contact_id, avatar_url)
//
// The roster file is replaced wholesale by its maintainer, so every query
// opens a short-lived read-only connection that is closed before the call
// returns rather than holding a handle across replacements.
type RosterSource struct {
	dbm *dbm.DBManager
}

func NewRosterSource(manager *dbm.DBManager) *RosterSource {
	return &RosterSource{dbm: manager}
}

// RosterPath reports where the roster database lives; ok is false when the
// file does not exist, which consumers treat as "no roster data" rather
// than an error.
func (s *RosterSource) RosterPath() (string, bool) {
	paths, err := s.dbm.GetDBPath(RosterGroup)
	if err != nil || len(paths) == 0 {
		return "", false
	}
	return paths[0], true
}

func (s *RosterSource) open() (*sql.DB, error) {
	path, ok := s.RosterPath()
	if !ok {
		return nil, errors.ErrFileNotFound
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, errors.StoreUnavailable("roster", err)
	}
	return db, nil
}

// ListConversations returns all sessions, most recently active first. Row
// order is meaningful: consumers keep it for tie-breaking.
func (s *RosterSource) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT username, is_group
		FROM session
		ORDER BY last_time DESC, id`)
	if err != nil {
		return nil, errors.StoreUnavailable("roster", err)
	}
	defer rows.Close()

	conversations := make([]*model.Conversation, 0, 32)
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.UserName, &c.IsGroup); err != nil {
			return nil, errors.StoreUnavailable("roster", err)
		}
		conversations = append(conversations, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("roster", err)
	}
	return conversations, nil
}

// ResolveDisplayNames maps usernames to display names, remark winning over
// nickname. Usernames without a contact row are simply absent from the
// result; callers fall back per entry.
func (s *RosterSource) ResolveDisplayNames(ctx context.Context, usernames []string) (map[string]string, error) {
	names := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return names, nil
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	for _, chunk := range chunkStrings(usernames, maxSQLVars) {
		query := `SELECT username, nick_name, remark FROM contact WHERE username IN (?` +
			strings.Repeat(",?", len(chunk)-1) + `)`
		rows, err := db.QueryContext(ctx, query, chunkArgs(chunk)...)
		if err != nil {
			return nil, errors.StoreUnavailable("roster", err)
		}
		for rows.Next() {
			var c model.Contact
			var nick, remark sql.NullString
			if err := rows.Scan(&c.UserName, &nick, &remark); err != nil {
				rows.Close()
				return nil, errors.StoreUnavailable("roster", err)
			}
			c.NickName = nick.String
			c.Remark = remark.String
			names[c.UserName] = c.DisplayName()
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.StoreUnavailable("roster", err)
		}
		rows.Close()
	}
	return names, nil
}

// ResolveAvatars maps usernames to avatar URLs; usernames without one are
// absent from the result.
func (s *RosterSource) ResolveAvatars(ctx context.Context, usernames []string) (map[string]string, error) {
	avatars := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return avatars, nil
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	for _, chunk := range chunkStrings(usernames, maxSQLVars) {
		query := `SELECT username, avatar_url FROM contact WHERE username IN (?` +
			strings.Repeat(",?", len(chunk)-1) + `)`
		rows, err := db.QueryContext(ctx, query, chunkArgs(chunk)...)
		if err != nil {
			return nil, errors.StoreUnavailable("roster", err)
		}
		for rows.Next() {
			var username string
			var url sql.NullString
			if err := rows.Scan(&username, &url); err != nil {
				rows.Close()
				return nil, errors.StoreUnavailable("roster", err)
			}
			if url.String != "" {
				avatars[username] = url.String
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.StoreUnavailable("roster", err)
		}
		rows.Close()
	}
	return avatars, nil
}

// RoomMembers returns the group's raw membership rows in roster order. The
// identity join is a left join: a membership row whose contact is missing
// comes back with an empty username for the consumer to skip.
func (s *RosterSource) RoomMembers(ctx context.Context, room string) ([]*model.RoomMember, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	roomID, err := lookupRoomID(ctx, db, room)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(c.username, ''),
		       COALESCE(NULLIF(m.avatar_url, ''), c.avatar_url, '')
		FROM chat_room_member m
		LEFT JOIN contact c ON c.id = m.contact_id
		WHERE m.room_id = ?
		ORDER BY m.rowid`,
		roomID)
	if err != nil {
		return nil, errors.StoreUnavailable("roster", err)
	}
	defer rows.Close()

	members := make([]*model.RoomMember, 0, 16)
	for rows.Next() {
		var m model.RoomMember
		if err := rows.Scan(&m.UserName, &m.AvatarURL); err != nil {
			return nil, errors.StoreUnavailable("roster", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("roster", err)
	}
	return members, nil
}

// CountRoomMembers counts membership rows for the group's internal roster
// id. An unknown room is a not-found error, left for callers to degrade.
func (s *RosterSource) CountRoomMembers(ctx context.Context, room string) (int, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	roomID, err := lookupRoomID(ctx, db, room)
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_room_member WHERE room_id = ?`, roomID).Scan(&n); err != nil {
		return 0, errors.StoreUnavailable("roster", err)
	}
	return n, nil
}

// lookupRoomID resolves a conversation identifier to the roster's own room id.
func lookupRoomID(ctx context.Context, db *sql.DB, room string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM chat_room WHERE username = ?`, room).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, errors.ErrRoomNotFound
	}
	if err != nil {
		return 0, errors.StoreUnavailable("roster", err)
	}
	return id, nil
}

func chunkStrings(values []string, size int) [][]string {
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for len(values) > size {
		chunks = append(chunks, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}

func chunkArgs(chunk []string) []any {
	args := make([]any, len(chunk))
	for i, v := range chunk {
		args[i] = v
	}
	return args
}
