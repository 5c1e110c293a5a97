// Package pubsub fans committed registry events out to in-process
// subscribers. Publishing never blocks: a subscriber whose buffer is full
// misses the event and is expected to catch up from the journal.
package pubsub
