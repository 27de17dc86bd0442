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
	"fmt"
	"strings"
)

// MaxSubQuestions is the largest number of sub-questions a plan may carry.
const MaxSubQuestions = 4

// NormalizeQuery returns the case-folded, trimmed form of a query.
// Identical normalized text always addresses the same cache entry.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// ValidateQuery checks that a query has usable text.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ValidatePlan validates a QueryPlan according to domain rules.
//
// Validation rules:
//   - RawQuery must not be empty
//   - 1 to MaxSubQuestions sub-questions, none empty
func ValidatePlan(plan *QueryPlan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", ErrInvalidPlan)
	}
	if err := ValidateQuery(plan.RawQuery); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if len(plan.SubQuestions) == 0 || len(plan.SubQuestions) > MaxSubQuestions {
		return fmt.Errorf("%w: %d sub-questions, want 1-%d", ErrInvalidPlan, len(plan.SubQuestions), MaxSubQuestions)
	}
	for i, q := range plan.SubQuestions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: sub-question %d is empty", ErrInvalidPlan, i)
		}
	}
	return nil
}
