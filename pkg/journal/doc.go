// Package journal persists committed registry events in SQLite so
// indexers can replay them in commit order.
//
// A Journal implements nestable.EventSink; attach it to a Directory with
// AddSink and every committed batch is appended in one SQL transaction.
// Appends are idempotent on the event id.
package journal
