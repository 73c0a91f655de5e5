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


// Package ai provides abstractions for AI services used in answerit.
//
// This package defines interfaces for text embeddings and chat
// completions. It follows the dependency inversion principle, allowing
// the retrieval and completion pipeline to depend on abstractions rather
// than a concrete provider. Implementations live in subpackages
// (ai/openai for OpenAI-compatible services, ai/mock for tests).
package ai
