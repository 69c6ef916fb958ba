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
// Package search turns high-level search requests into permission-checked
// queries and runs them.
//
// A Request names who is asking, which collections to search, and what to
// look for: free text, an optional nearest-neighbour match over the text's
// embedding, and app, entity and time filters. Filters may also be read out
// of the text itself by an ai.FilterExtractor. The Searcher
//
//   - extracts filters and embeds the text when asked to
//   - compiles the request with the yql builder, which injects the access
//     check for the requester
//   - sends the query through the transport client and records it in the
//     query journal
//   - optionally re-checks every hit against the requester's access
//     predicate and drops the ones that fail
//
// Each stage is reported to an optional SearchMonitor.
package search
