// Package synthesis turns retrieved passages into a long-form answer.
//
// One generation call on the writer model produces prose in the plan's
// output format (article, report or direct answer) followed by an optional
// fenced executive_summary JSON block. The block is parsed tolerantly: when
// it is missing or malformed the prose is still returned and the summary is
// omitted. Only a generation call that exhausts its retries fails, with a
// core.CodeSynthesisFailed error the caller may retry.
package synthesis
