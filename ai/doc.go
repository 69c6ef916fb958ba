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


// Package ai provides abstractions for the AI services used at query time.
//
// Two services feed the query builder:
//
//   - Embedder: turns the request text into the vector bound to the
//     nearestNeighbor query input
//   - FilterExtractor: reads app, entity and time constraints out of a
//     natural-language request so they become structured filters instead
//     of free text
//
// AIProvider aggregates both for convenient initialization.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs via langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and read call counts:
//
//	provider, err := openai.NewProvider(config) // returns ai.AIProvider
//
//	extractor := mock.NewMockFilterExtractor()
//	extractor.ExtractFiltersFunc = ...
//	count := extractor.CallCount()
package ai
