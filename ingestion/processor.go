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


package ingestion

import (
	"context"

	"github.com/poiesic/pageflow/core"
)

// processor is an internal interface for running one document end to end.
type processor interface {
	// process converts, extracts, embeds and upserts every page of doc,
	// then checkpoints it. It never panics and never returns nil.
	process(ctx context.Context, doc core.SourceDocument) *core.DocumentResult
}
