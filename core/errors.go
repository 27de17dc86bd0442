// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"errors"
	"fmt"
)

// ReasonCode is the stable, caller-visible reason for a failed request.
type ReasonCode string

const (
	// CodeInvalidQuery means the request carried no usable query text.
	CodeInvalidQuery ReasonCode = "INVALID_QUERY"
	// CodeRetrievalFailed means no relevant content was found for any sub-question.
	CodeRetrievalFailed ReasonCode = "RETRIEVAL_FAILED"
	// CodeSynthesisFailed means the generation call exhausted its retries.
	// Callers may retry the request.
	CodeSynthesisFailed ReasonCode = "SYNTHESIS_FAILED"
)

// Sentinel errors matched by errors.Is against a *PipelineError of the same code.
var (
	ErrInvalidQuery    = errors.New("invalid query")
	ErrRetrievalFailed = errors.New("retrieval failed")
	ErrSynthesisFailed = errors.New("synthesis failed")
)

// Domain validation errors
var (
	// ErrEmptyQuery indicates the query is empty after trimming.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidPlan indicates a QueryPlan failed validation.
	ErrInvalidPlan = errors.New("invalid query plan")
)

// PipelineError is a fatal, typed request failure.
type PipelineError struct {
	Code    ReasonCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's code.
func (e *PipelineError) Is(target error) bool {
	switch e.Code {
	case CodeInvalidQuery:
		return target == ErrInvalidQuery
	case CodeRetrievalFailed:
		return target == ErrRetrievalFailed
	case CodeSynthesisFailed:
		return target == ErrSynthesisFailed
	}
	return false
}

// Retryable reports whether the caller may retry the same request.
func (e *PipelineError) Retryable() bool {
	return e.Code == CodeSynthesisFailed
}

// NewInvalidQuery creates a failure for an unusable query.
func NewInvalidQuery(err error) *PipelineError {
	return &PipelineError{
		Code:    CodeInvalidQuery,
		Message: "query is not usable",
		Err:     err,
	}
}

// NewRetrievalFailed creates a failure for a query with no relevant content.
func NewRetrievalFailed(subQuestions int) *PipelineError {
	return &PipelineError{
		Code:    CodeRetrievalFailed,
		Message: fmt.Sprintf("no relevant content found for %d sub-question(s)", subQuestions),
	}
}

// NewSynthesisFailed creates a failure for an exhausted generation call.
func NewSynthesisFailed(err error) *PipelineError {
	return &PipelineError{
		Code:    CodeSynthesisFailed,
		Message: "answer generation failed",
		Err:     err,
	}
}

// IsCode checks if err is, or wraps, a PipelineError with the given code.
func IsCode(err error, code ReasonCode) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// CodeOf returns the reason code of err, or "" if it is not a PipelineError.
func CodeOf(err error) ReasonCode {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ""
}
