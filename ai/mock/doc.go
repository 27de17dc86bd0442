// Package mock provides test double implementations of AI service interfaces.
//
// This package contains scripted implementations of ai.Reasoner and
// ai.AIProvider for use in unit tests. The mocks allow tests to run without
// a model server and make navigation and synthesis deterministic.
//
// # Usage in Tests
//
//	// Canned responses, replayed in order; the last one repeats
//	r := mock.NewReasoner(`{"selected_themes": ["t1"]}`)
//
//	// Custom behavior injection
//	r := mock.NewReasoner().WithReasonFunc(func(ctx context.Context, req ai.Request) (string, error) {
//	    if strings.Contains(req.System, "theme") {
//	        return `{"selected_themes": ["t1"]}`, nil
//	    }
//	    return `{}`, nil
//	})
//
//	// Check call counts
//	count := r.CallCount()
//
// # Default Behavior
//
//   - Reasoner: returns "{}" when no responses or function are configured
//   - Provider: aggregates a reasoning and a writing mock
package mock
