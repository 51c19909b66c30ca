// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation/message/contact persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeFormat is RFC3339 with fixed-width nanoseconds so that lexicographic
// order of stored timestamps equals chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway, and the store is
	// the ordering authority for same-conversation appends.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id           TEXT PRIMARY KEY,
			channel      TEXT NOT NULL,
			external_id  TEXT NOT NULL,
			mode         TEXT NOT NULL DEFAULT 'AI',
			item_label   TEXT,
			unread_count INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			CHECK (channel IN ('telegram', 'web', 'whatsapp', 'instagram', 'vk', 'avito')),
			CHECK (mode IN ('AI', 'HUMAN', 'DONE'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_channel_external
			ON conversations(channel, external_id);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
			ON conversations(updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			created_at      TEXT NOT NULL,

			CHECK (role IN ('user', 'assistant', 'system', 'manager'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS contacts (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL UNIQUE REFERENCES conversations(id) ON DELETE CASCADE,
			name            TEXT NOT NULL,
			phone           TEXT,
			email           TEXT,
			notes           TEXT,
			history_json    TEXT NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS agent_profile (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			name          TEXT NOT NULL,
			role          TEXT NOT NULL,
			tone          TEXT NOT NULL,
			system_prompt TEXT,
			skills_json   TEXT NOT NULL DEFAULT '{}',
			updated_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS knowledge_docs (
			id         TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			content    TEXT,
			size       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// GetOrCreateConversation looks up a conversation by (channel, externalID) and
// creates it, together with its contact, when absent. Creation is atomic: a
// concurrent duplicate insert fails on the unique index and is retried as a
// lookup, so two racing callers always converge on the same conversation.
func (s *SQLiteStore) GetOrCreateConversation(ctx context.Context, channel Channel, externalID, contactNameHint, itemLabel string) (*Conversation, error) {
	if !channel.Valid() {
		return nil, &ValidationError{Field: "channel", Value: string(channel)}
	}

	conv, err := s.getByChannelExternalID(ctx, channel, externalID)
	if err == nil {
		return conv, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	if contactNameHint == "" {
		contactNameHint = "Unknown"
	}

	now := time.Now().UTC()
	conv = &Conversation{
		ID:         uuid.New().String(),
		Channel:    channel,
		ExternalID: externalID,
		Mode:       ModeAI,
		ItemLabel:  itemLabel,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	contact := &Contact{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Name:           contactNameHint,
		History:        []string{},
	}

	err = s.createConversation(ctx, conv, contact)
	if err == ErrDuplicateConversation {
		// Another request created the conversation between our lookup and
		// insert. The unique index is the source of truth: retry as lookup.
		existing, lookupErr := s.getByChannelExternalID(ctx, channel, externalID)
		if lookupErr == nil {
			s.logger.Debug("found existing conversation after race",
				"conversation_id", existing.ID, "channel", channel, "external_id", externalID)
			return existing, nil
		}
		return nil, fmt.Errorf("retry lookup after duplicate: %w", lookupErr)
	}
	if err != nil {
		return nil, err
	}

	conv.Messages = []*Message{}
	conv.Contact = contact
	s.logger.Debug("created conversation",
		"conversation_id", conv.ID, "channel", channel, "external_id", externalID)
	return conv, nil
}

// createConversation inserts a conversation and its contact in one transaction.
func (s *SQLiteStore) createConversation(ctx context.Context, conv *Conversation, contact *Contact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, channel, external_id, mode, item_label, unread_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`,
		conv.ID,
		string(conv.Channel),
		conv.ExternalID,
		string(conv.Mode),
		nullString(conv.ItemLabel),
		conv.CreatedAt.Format(timeFormat),
		conv.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (id, conversation_id, name, phone, email, notes, history_json)
		VALUES (?, ?, ?, NULL, NULL, NULL, '[]')
	`, contact.ID, contact.ConversationID, contact.Name)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}

	return tx.Commit()
}

// getByChannelExternalID retrieves a conversation (with messages and contact)
// using the idx_conversations_channel_external index.
func (s *SQLiteStore) getByChannelExternalID(ctx context.Context, channel Channel, externalID string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel, external_id, mode, item_label, unread_count, created_at, updated_at
		FROM conversations
		WHERE channel = ? AND external_id = ?
	`, string(channel), externalID)

	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}
	return s.loadRelations(ctx, conv)
}

// GetConversation retrieves a conversation by ID with its messages and contact.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel, external_id, mode, item_label, unread_count, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id)

	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}
	return s.loadRelations(ctx, conv)
}

// ListConversations returns all conversations ordered by most recent activity,
// each with its full message history and contact.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel, external_id, mode, item_label, unread_count, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	for _, conv := range conversations {
		if _, err := s.loadRelations(ctx, conv); err != nil {
			return nil, err
		}
	}
	return conversations, nil
}

// SetMode transitions a conversation's control mode and bumps updated_at.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) SetMode(ctx context.Context, id string, mode Mode) (*Conversation, error) {
	if !mode.Valid() {
		return nil, &ValidationError{Field: "mode", Value: string(mode)}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET mode = ?, updated_at = ? WHERE id = ?
	`, string(mode), time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return nil, fmt.Errorf("updating mode: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("mode updated", "conversation_id", id, "mode", mode)
	return s.GetConversation(ctx, id)
}

// AppendMessage appends a message to a conversation. The timestamp is
// assigned inside the insert transaction and is strictly greater than any
// prior message's timestamp in the same conversation, so stored order is
// append order even under clock regressions. Prior messages are never mutated.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error) {
	if !role.Valid() {
		return nil, &ValidationError{Field: "role", Value: string(role)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking conversation: %w", err)
	}

	now := time.Now().UTC()
	var lastStr sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM messages WHERE conversation_id = ?
	`, conversationID).Scan(&lastStr)
	if err != nil {
		return nil, fmt.Errorf("querying last message time: %w", err)
	}
	if lastStr.Valid {
		last, perr := time.Parse(timeFormat, lastStr.String)
		if perr == nil && !now.After(last) {
			now = last.Add(time.Nanosecond)
		}
	}

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, string(msg.Role), msg.Content, now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, now.Format(timeFormat), conversationID)
	if err != nil {
		return nil, fmt.Errorf("bumping conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("appended message",
		"id", msg.ID, "conversation_id", conversationID, "role", role)
	return msg, nil
}

// History retrieves the most recent `limit` messages in chronological order
// (oldest of the window first). If limit is 0 or negative, all messages are
// returned.
func (s *SQLiteStore) History(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	var query string
	var args []any

	if limit > 0 {
		// Get the N most recent messages, but return them in chronological order
		query = `
			SELECT id, conversation_id, role, content, created_at
			FROM (
				SELECT id, conversation_id, role, content, created_at
				FROM messages
				WHERE conversation_id = ?
				ORDER BY created_at DESC
				LIMIT ?
			)
			ORDER BY created_at ASC
		`
		args = []any{conversationID, limit}
	} else {
		query = `
			SELECT id, conversation_id, role, content, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at ASC
		`
		args = []any{conversationID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var role, createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.Role = Role(role)
		msg.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// UpdateContact applies partial edits to a conversation's contact.
// Returns ErrNotFound if the conversation has no contact.
func (s *SQLiteStore) UpdateContact(ctx context.Context, conversationID string, update ContactUpdate) (*Contact, error) {
	contact, err := s.getContact(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		contact.Name = *update.Name
	}
	if update.Phone != nil {
		contact.Phone = *update.Phone
	}
	if update.Email != nil {
		contact.Email = *update.Email
	}
	if update.Notes != nil {
		contact.Notes = *update.Notes
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE contacts SET name = ?, phone = ?, email = ?, notes = ?
		WHERE conversation_id = ?
	`, contact.Name, nullString(contact.Phone), nullString(contact.Email), nullString(contact.Notes), conversationID)
	if err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	s.logger.Debug("updated contact", "conversation_id", conversationID)
	return contact, nil
}

// AppendContactInteraction appends a summary line to the contact's
// prior-interaction log. The log is append-only.
func (s *SQLiteStore) AppendContactInteraction(ctx context.Context, conversationID, summary string) (*Contact, error) {
	contact, err := s.getContact(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	contact.History = append(contact.History, summary)
	historyJSON, err := json.Marshal(contact.History)
	if err != nil {
		return nil, fmt.Errorf("encoding contact history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE contacts SET history_json = ? WHERE conversation_id = ?
	`, string(historyJSON), conversationID)
	if err != nil {
		return nil, fmt.Errorf("appending contact interaction: %w", err)
	}
	return contact, nil
}

// getContact retrieves the contact for a conversation.
func (s *SQLiteStore) getContact(ctx context.Context, conversationID string) (*Contact, error) {
	var contact Contact
	var phone, email, notes sql.NullString
	var historyJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, name, phone, email, notes, history_json
		FROM contacts
		WHERE conversation_id = ?
	`, conversationID).Scan(&contact.ID, &contact.ConversationID, &contact.Name, &phone, &email, &notes, &historyJSON)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying contact: %w", err)
	}

	contact.Phone = phone.String
	contact.Email = email.String
	contact.Notes = notes.String
	if err := json.Unmarshal([]byte(historyJSON), &contact.History); err != nil {
		return nil, fmt.Errorf("decoding contact history: %w", err)
	}
	return &contact, nil
}

// GetAgentProfile returns the singleton agent profile.
// Returns ErrNotFound if no profile has been saved.
func (s *SQLiteStore) GetAgentProfile(ctx context.Context) (*AgentProfile, error) {
	var profile AgentProfile
	var systemPrompt sql.NullString
	var skillsJSON, updatedAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT name, role, tone, system_prompt, skills_json, updated_at
		FROM agent_profile
		WHERE id = 1
	`).Scan(&profile.Name, &profile.Role, &profile.Tone, &systemPrompt, &skillsJSON, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying agent profile: %w", err)
	}

	profile.SystemPrompt = systemPrompt.String
	if err := json.Unmarshal([]byte(skillsJSON), &profile.Skills); err != nil {
		return nil, fmt.Errorf("decoding skills: %w", err)
	}
	profile.UpdatedAt, err = time.Parse(timeFormat, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &profile, nil
}

// SaveAgentProfile inserts or replaces the singleton agent profile.
func (s *SQLiteStore) SaveAgentProfile(ctx context.Context, profile *AgentProfile) error {
	skills := profile.Skills
	if skills == nil {
		skills = map[string]bool{}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("encoding skills: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agent_profile (id, name, role, tone, system_prompt, skills_json, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
	`,
		profile.Name,
		profile.Role,
		profile.Tone,
		nullString(profile.SystemPrompt),
		string(skillsJSON),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("saving agent profile: %w", err)
	}

	s.logger.Debug("saved agent profile", "name", profile.Name)
	return nil
}

// AddKnowledgeDoc stores a knowledge-base document with extracted text.
func (s *SQLiteStore) AddKnowledgeDoc(ctx context.Context, doc *KnowledgeDoc) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Size == 0 {
		doc.Size = int64(len(doc.Content))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO knowledge_docs (id, filename, content, size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, nullString(doc.Content), doc.Size, doc.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("inserting knowledge doc: %w", err)
	}

	s.logger.Debug("added knowledge doc", "id", doc.ID, "filename", doc.Filename, "size", doc.Size)
	return nil
}

// ListKnowledgeDocs returns all knowledge documents, oldest first.
func (s *SQLiteStore) ListKnowledgeDocs(ctx context.Context) ([]*KnowledgeDoc, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, content, size, created_at
		FROM knowledge_docs
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge docs: %w", err)
	}
	defer rows.Close()

	var docs []*KnowledgeDoc
	for rows.Next() {
		var doc KnowledgeDoc
		var content sql.NullString
		var createdAtStr string

		if err := rows.Scan(&doc.ID, &doc.Filename, &content, &doc.Size, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning knowledge doc: %w", err)
		}
		doc.Content = content.String
		doc.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing knowledge doc created_at: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating knowledge doc rows: %w", err)
	}
	return docs, nil
}

// DeleteKnowledgeDoc removes a knowledge document.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) DeleteKnowledgeDoc(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_docs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting knowledge doc: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// loadRelations populates a conversation's messages and contact.
func (s *SQLiteStore) loadRelations(ctx context.Context, conv *Conversation) (*Conversation, error) {
	messages, err := s.History(ctx, conv.ID, 0)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*Message{}
	}
	conv.Messages = messages

	contact, err := s.getContact(ctx, conv.ID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	conv.Contact = contact
	return conv, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanConversation.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conv Conversation
	var channel, mode string
	var itemLabel sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&conv.ID,
		&channel,
		&conv.ExternalID,
		&mode,
		&itemLabel,
		&conv.UnreadCount,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	conv.Channel = Channel(channel)
	conv.Mode = Mode(mode)
	conv.ItemLabel = itemLabel.String

	conv.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	conv.UpdatedAt, err = time.Parse(timeFormat, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &conv, nil
}

// nullString returns nil for empty strings, otherwise the string value
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
