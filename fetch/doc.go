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


// Package fetch retrieves documents in bulk.
//
// FetchByIDs splits an id list into batches, compiles one Include-scoped,
// permission-checked query per batch and runs the batches through a bounded
// worker pool. FetchAll pages through every document matching a condition.
// Both optionally re-check each returned document against the requester's
// access-control predicate before handing it out.
package fetch
