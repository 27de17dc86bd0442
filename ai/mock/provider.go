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


package mock

import "github.com/poiesic/pageindex/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates a reasoning mock and a writing mock.
type MockProvider struct {
	reasoner *Reasoner
	writer   *Reasoner
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockReasoner()/GetMockWriter() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		reasoner: NewReasoner(),
		writer:   NewReasoner(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(reasoner, writer *Reasoner) ai.AIProvider {
	return &MockProvider{
		reasoner: reasoner,
		writer:   writer,
	}
}

// Reasoner returns the mock reasoning model.
func (p *MockProvider) Reasoner() ai.Reasoner {
	return p.reasoner
}

// Writer returns the mock writing model.
func (p *MockProvider) Writer() ai.Reasoner {
	return p.writer
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockReasoner returns the underlying reasoning mock for test assertions.
func (p *MockProvider) GetMockReasoner() *Reasoner {
	return p.reasoner
}

// GetMockWriter returns the underlying writing mock for test assertions.
func (p *MockProvider) GetMockWriter() *Reasoner {
	return p.writer
}
