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


// Package projection tracks whether a dataset's rows have become
// queryable.
//
// Ingestion is asynchronous: a write returns before indexing completes,
// so a read immediately after a write must not assume visibility. The
// Tracker gives callers a single non-blocking probe and a bounded wait
// that opens a narrow window (seconds) for a just-written row to become
// visible before the caller proceeds without the dataset.
//
// The tracked state is a cache of the last known projection outcome, not
// a source of truth; entries live for the process lifetime and are
// re-probed on demand.
package projection
