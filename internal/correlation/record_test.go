package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "quietlog/pkg/errors"
)

func TestParserParse(t *testing.T) {
	parser := NewParser("trace_id")

	tests := []struct {
		name        string
		raw         string
		wantID      string
		wantErrCode string
	}{
		{name: "valid record", raw: `{"trace_id":"abc","level":"info"}`, wantID: "abc"},
		{name: "empty id is still an id", raw: `{"trace_id":""}`, wantID: ""},
		{name: "not json", raw: `hello world`, wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "truncated json", raw: `{"trace_id":"abc"`, wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "missing field", raw: `{"level":"error"}`, wantErrCode: pkgerrors.ErrMissingCorrelationField.Code},
		{name: "numeric id", raw: `{"trace_id":42}`, wantErrCode: pkgerrors.ErrMissingCorrelationField.Code},
		{name: "null id", raw: `{"trace_id":null}`, wantErrCode: pkgerrors.ErrMissingCorrelationField.Code},
		{name: "unknown escape", raw: `{"trace_id":"abc","msg":"bad \q escape"}`, wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "NaN literal", raw: `{"trace_id":"abc","n":NaN}`, wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "inf literal", raw: `{"trace_id":"abc","n":inf}`, wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "raw tab in string", raw: "{\"trace_id\":\"abc\",\"msg\":\"a\tb\"}", wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "leading zero", raw: `{"trace_id":"abc","n":01}`, wantErrCode: pkgerrors.ErrMalformedRecord.Code},
		{name: "escaped tab is fine", raw: `{"trace_id":"abc","msg":"a\tb"}`, wantID: "abc"},
		{name: "duplicate id keeps the last", raw: `{"trace_id":"a","trace_id":"b"}`, wantID: "b"},
		{name: "top level array", raw: `["trace_id"]`, wantErrCode: pkgerrors.ErrMissingCorrelationField.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parser.Parse(tt.raw, 100)
			if tt.wantErrCode != "" {
				require.Error(t, err)
				assert.Nil(t, rec)
				assert.True(t, pkgerrors.IsUnparseable(err))

				var appErr *pkgerrors.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantErrCode, appErr.Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, rec.CorrelationID)
			assert.Equal(t, tt.raw, rec.Raw)
			assert.Equal(t, int64(100), rec.ReceivedAt)
		})
	}
}

func TestRecordField(t *testing.T) {
	rec, err := NewParser("id").Parse(`{"id":"x","status":500,"nested":{"a":1}}`, 0)
	require.NoError(t, err)

	assert.NotNil(t, rec.Field("status"))
	assert.NotNil(t, rec.Field("nested"))
	assert.Nil(t, rec.Field("absent"))
}

func TestRecordField_DuplicateKeyKeepsLast(t *testing.T) {
	rec, err := NewParser("id").Parse(`{"id":"x","level":"info","level":"error"}`, 0)
	require.NoError(t, err)

	level := rec.Field("level")
	require.NotNil(t, level)
	assert.Equal(t, "error", string(level.GetStringBytes()))
}

func TestParserKeepsRawBytes(t *testing.T) {
	raw := "{\"id\":\"x\",  \"msg\":\"café\"}\r"
	rec, err := NewParser("id").Parse(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, raw, rec.Raw)
}
