package storage

import (
	"testing"

	"github.com/poiesic/pageflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalVectorRecord(t *testing.T) {
	record := &core.VectorRecord{
		ID:        core.NewRecordID(),
		Embedding: []float32{0.1, -0.2, 0.3},
		Text:      "scanned page text",
		Metadata:  map[string]string{core.MetadataSource: "https://fake.url/a_page_1.png"},
	}

	data, err := MarshalVectorRecord(record)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalVectorRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestUnmarshalVectorRecord_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"garbage", []byte{0xff, 0x00, 0x13, 0x37}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalVectorRecord(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestValidateRecords(t *testing.T) {
	valid := &core.VectorRecord{
		ID:        "id-1",
		Embedding: []float32{1},
		Text:      "text",
		Metadata:  map[string]string{core.MetadataSource: "src"},
	}
	require.NoError(t, ValidateRecords([]*core.VectorRecord{valid}))
	require.NoError(t, ValidateRecords(nil))

	invalid := &core.VectorRecord{ID: "id-2", Text: "text", Metadata: valid.Metadata}
	err := ValidateRecords([]*core.VectorRecord{valid, invalid})
	assert.ErrorIs(t, err, core.ErrEmptyEmbedding)
}
