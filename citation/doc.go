// Package citation checks quoted text in generated drafts against the
// retrieved transcript chunks.
//
// Every double-quoted span of at least fifteen characters is compared with
// the candidate chunks, narrowed to the speaker named in the attribution that
// follows the quote when one is present. The best similarity ratio decides
// the outcome:
//
//	ratio >= verify threshold   verified as written
//	ratio >= fix threshold      rewritten to the chunk's verbatim text, verified
//	otherwise                   left in place, marked and listed as unverified
//
// Verification is total. It never returns an error; in the worst case every
// quote is reported unverified.
package citation
