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


// Package transport sends compiled queries to the search platform.
//
// A Client posts one JSON payload per query to the platform's search
// endpoint and decodes the hits. Rate limiting (429) and server errors (5xx)
// are retried with exponential backoff up to a bounded number of attempts;
// other client errors, such as 404, fail immediately. Compiled queries are
// deterministic, so a retried request is byte-identical to the first.
package transport
