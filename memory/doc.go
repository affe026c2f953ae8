// Package memory decides which conversation a task runs against.
//
// A Provider hands out a Lease for the duration of one task:
//   - Private providers create a new conversation per lease and forget it on release.
//   - Shared providers lazily create one conversation and reuse it for every
//     task of the agent. Leases are exclusive: a second task waits until the
//     first releases, or until its context is done.
//
// A Store keeps one shared provider per key (usually the agent name).
// Conversations live in process memory only; nothing is persisted.
package memory
