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


// Package completion turns prompts and knowledge entries into structured
// answers.
//
// The engine issues the model call, recovers from truncation with a
// single continuation, retries an empty response once, and normalizes
// whatever the model returned — structured JSON or free text — into an
// answer with source attribution. Malformed model output is treated as
// plain text, never as an error.
package completion
