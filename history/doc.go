// Package history records which queries each session has been served.
//
// Recording is fire-and-forget: Record hands the write to a small ants pool
// and returns. A session keeps its newest entries first, holds each cache key
// once, and is capped at DefaultLimit entries.
package history
