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


package search

import "errors"

var (
	// ErrClientRequired is returned when a search client is not provided.
	ErrClientRequired = errors.New("search client required")

	// ErrEmbedderRequired is returned when a vector search is requested
	// without an embedder.
	ErrEmbedderRequired = errors.New("embedder required for vector search")

	// ErrExtractorRequired is returned when filter extraction is requested
	// without a filter extractor.
	ErrExtractorRequired = errors.New("filter extractor required")

	// ErrTextRequired is returned when a vector search has no text to embed.
	ErrTextRequired = errors.New("search text required for vector search")
)
