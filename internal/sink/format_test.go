package sink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFileFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FileFormat
	}{
		{"orc input format", orcInputFormat, FormatORC},
		{"parquet input format", parquetInputFormat, FormatParquet},
		{"text input format", textInputFormat, FormatText},
		{"canonical csv", "CSV_PLAIN", FormatCSVPlain},
		{"canonical text", "TEXT", FormatText},
		{"canonical orc", "ORC", FormatORC},
		{"canonical parquet", "parquet", FormatParquet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFileFormat(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFileFormat_Unsupported(t *testing.T) {
	inputs := []string{
		"",
		"org.apache.hadoop.hive.ql.io.RCFileInputFormat",
		"org.apache.hadoop.mapred.SequenceFileInputFormat",
		"org.apache.hadoop.hive.ql.io.avro.AvroContainerInputFormat",
		"JSON",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ResolveFileFormat(in)
			require.Error(t, err)
			var unsupported *ErrUnsupportedFormat
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, in, unsupported.Format)
		})
	}
}

func TestFileFormatIsTextLike(t *testing.T) {
	assert.True(t, FormatText.IsTextLike())
	assert.True(t, FormatCSVPlain.IsTextLike())
	assert.False(t, FormatORC.IsTextLike())
	assert.False(t, FormatParquet.IsTextLike())
}
