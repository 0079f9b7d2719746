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


package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateVectorRecord validates a VectorRecord before it is sent to a vector store.
//
// Validation rules:
//   - ID must not be empty
//   - Embedding must contain at least one value
//   - Text must not be blank
//   - Metadata must carry a non-empty source URL
func ValidateVectorRecord(record *VectorRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidVectorRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyID)
	}

	if len(record.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyEmbedding)
	}

	if strings.TrimSpace(record.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrEmptyText)
	}

	if record.Metadata[MetadataSource] == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVectorRecord, ErrMissingSource)
	}

	return nil
}

// ValidateOCRResult validates an OCRResult returned by the OCR service.
//
// Empty text is valid here: an empty page is skipped by the pipeline,
// not rejected by the client.
func ValidateOCRResult(result *OCRResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidOCRResult)
	}

	if math.IsNaN(result.ClarityPercent) || math.IsInf(result.ClarityPercent, 0) || result.ClarityPercent < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOCRResult, ErrInvalidClarity)
	}

	return nil
}
