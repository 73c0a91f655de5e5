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


// Package ingestion indexes stored snippets asynchronously.
//
// A write to the snippet store returns before its embedding exists; the
// Indexer picks the row up on a worker pool, embeds it, and flips it to
// indexed. Until then the row is invisible to semantic search, which is
// why readers probe dataset projection state instead of assuming
// read-your-writes.
package ingestion
