// Package planner decomposes an incoming research query into a QueryPlan.
//
// A plan carries one to four focused sub-questions, an optional guest the
// query is about, and the output format the answer should take. Planning is a
// single structured reasoning call. Malformed output is retried once with a
// stricter instruction; if that also fails the planner returns a plan whose
// only sub-question is the raw query. Plan never fails a request.
//
// The guest a plan names is only a proposal. The caller applies it as a hard
// filter only when it agrees with the navigator's independent speaker
// extraction.
package planner
