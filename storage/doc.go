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


// Package storage provides the storage abstraction layer for answerit.
//
// This package defines repository interfaces that decouple storage
// implementation from the retrieval and projection logic. Rows are
// partitioned into named datasets (per-subject, per-conversation, or
// global) which are probed and searched independently. An implementation
// must make writes visible to raw reads immediately; semantic search only
// sees rows after the asynchronous indexer has written their embeddings.
package storage
