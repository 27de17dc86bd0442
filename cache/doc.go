// Package cache serves repeated research queries from stored results.
//
// Entries are addressed by Key, the SHA-256 digest of the case-folded,
// trimmed query, so "what is PMF" and " What Is PMF " share one entry. Every
// hit bumps the entry's access count, which TopByAccessCount uses to rank
// popular queries. The count is best effort: concurrent hits on one key may
// lose increments and a failed increment never fails the read.
//
// The cache never blocks the pipeline. Read and write failures are logged and
// treated as a miss or a dropped write.
package cache
