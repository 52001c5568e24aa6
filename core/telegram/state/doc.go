// Package state keeps per-user conversation sessions for Telegram bots.
// A session is created on first touch, is mutated only while its owner's
// lock is held, and disappears as soon as it returns to StateIdle.
package state
