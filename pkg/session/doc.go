// Package session is the state machine tying the authoring subsystem
// together: it owns the document metadata and the single active-section
// pointer, mediates pull/push against the external editor through the codec,
// arbitrates between the local draft and the remote loader depending on how
// the session was entered, and assembles the final save payload.
//
// Ordering guarantees the controller enforces:
//
//  1. Pull-before-push on every section switch — the current section's
//     snapshot lands in the store before the target's fragment is handed to
//     the editor, so edits are never silently lost.
//  2. Restore-before-autosave at create-mode start — autosaves are ignored
//     until the restored fragment has been accepted by the editor.
//  3. At most one remote load per (id, mode) pair.
//  4. Responses arriving after Close are discarded, not applied.
package session
