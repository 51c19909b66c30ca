// Package store provides persistent storage for the unified inbox using SQLite.
//
// # Data Models
//
//   - Conversation: one exchange with a contact, keyed by (channel, external id)
//   - Message: immutable, totally ordered entries in a conversation
//   - Contact: the person behind a conversation (one-to-one, owned)
//   - AgentProfile: singleton automated-responder configuration
//   - KnowledgeDoc: knowledge-base documents with extracted plain text
//
// Channel, Mode and Role are closed types; enum values are also enforced by
// CHECK constraints in the schema, so an unknown value can never be persisted.
//
// # Ordering
//
// AppendMessage assigns timestamps inside the insert transaction and clamps
// them to be strictly increasing per conversation. Timestamps are stored in a
// fixed-width RFC3339 format whose lexicographic order equals chronological
// order, so the (conversation_id, created_at) index yields chronology directly.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateConversation: concurrent create hit the unique index
//   - ValidationError: unknown channel/mode/role value from a caller
package store
