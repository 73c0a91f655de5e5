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


// Package retrieval resolves which datasets to consult for a subject and
// executes semantic search over them.
//
// Retrieval degrades, it does not fail: a dataset that is still
// projecting, stably empty, or erroring is skipped, and when semantic
// search yields nothing the subject's most recent raw rows stand in, so
// a cold or unindexed subject is never treated identically to "truly no
// data".
package retrieval
