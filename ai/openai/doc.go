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


// Package openai provides ai.AIProvider implementations backed by langchaingo.
//
// Despite the name, the provider speaks to several backends selected by
// ai.Config.Backend: any OpenAI-compatible server (OpenAI, Ollama's /v1
// endpoint, LocalAI, vLLM), Azure OpenAI deployments, Ollama's native API
// and Anthropic.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithReasoningModel("qwen2.5:7b"),
//	    ai.WithWritingModel("qwen2.5:14b"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	answer, err := provider.Writer().Reason(ctx, ai.Request{System: sys, User: prompt})
package openai
