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


// Package pipeline answers questions end to end.
//
// One request flows dedupe lookup → retrieval → primary completion →
// fallback completion → extractive summary → finalize, stopping at the
// first stage that produces a usable answer. Stages are sequential by
// construction: the continuation needs the first call's output and the
// fallback needs to know the primary failed. Only exhaustion of every
// stage surfaces an abort to the caller; a silently empty answer is
// never returned.
package pipeline
