// Package navigator walks the corpus index with language-model reasoning.
//
// Each selection operation hands the model a bounded candidate list of
// natural-language descriptions (themes, episode summaries, topic labels) and
// asks for the relevant ids. Responses are untrusted: ids outside the
// candidate set are discarded, malformed output is retried under a bounded
// backoff policy, and a stage that keeps failing degrades to the first
// candidates in corpus order instead of failing the request.
//
// Quote retrieval is a pure index lookup.
package navigator
