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

import "errors"

// Domain validation errors
var (
	// ErrInvalidVectorRecord indicates a VectorRecord failed validation.
	ErrInvalidVectorRecord = errors.New("invalid vector record")

	// ErrInvalidOCRResult indicates an OCRResult failed validation.
	ErrInvalidOCRResult = errors.New("invalid OCR result")

	// ErrEmptyID indicates the record ID is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyEmbedding indicates the embedding vector has no values.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")

	// ErrEmptyText indicates the text body is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrMissingSource indicates the record metadata has no source URL.
	ErrMissingSource = errors.New("metadata source cannot be empty")

	// ErrInvalidClarity indicates a negative or non-finite clarity percentage.
	ErrInvalidClarity = errors.New("clarity must be a finite, non-negative number")
)
