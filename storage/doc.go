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


// Package storage provides the storage abstraction layer for pageindex.
//
// This package defines the repository interfaces used by the result cache and
// the session history recorder, and the binary codec for their records. The
// interfaces decouple the pipeline from the storage engine; storage/badger is
// the shipped implementation.
//
// # Architecture
//
//   - CacheRepository: cached research results addressed by cache key
//   - HistoryRepository: per-session lists of served queries
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	cacheRepo, historyRepo, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe. Writes to different
// keys need no coordination. Concurrent access-count increments on one key
// may race; the counter is a popularity heuristic, not a ledger.
//
// # Context Support
//
// All repository methods accept context.Context. A cancelled context is
// reported before any storage work starts.
package storage
