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


// Package ai provides abstractions for the language-model calls used by pageindex.
//
// Every stage that needs a model depends on the Reasoner interface rather than
// a concrete client. A Reasoner takes a Request (system prompt, user prompt,
// JSON mode, temperature) and returns raw response text; callers own parsing
// and treat the text as untrusted input.
//
// # Design Principles
//
//   - Reasoner: one model call, raw text out
//   - AIProvider: hands out a reasoning model (navigation, planning) and a
//     writing model (synthesis) that share a single in-flight call cap
//   - DecodeJSON: tolerant extraction of a JSON object from model output
//
// # Implementation Packages
//
//   - ai/openai: langchaingo-backed provider for OpenAI-compatible servers,
//     Azure OpenAI, Ollama and Anthropic
//   - ai/mock: scripted test doubles
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider) return INTERFACE types. Test
// constructors (mock.NewReasoner) return CONCRETE types so tests can inject
// behavior and assert on call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModel("gpt-4o-mini"), ai.WithAPIKey(key))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	text, err := provider.Reasoner().Reason(ctx, ai.Request{
//	    System: "Select relevant themes.",
//	    User:   query,
//	    JSON:   true,
//	})
package ai
