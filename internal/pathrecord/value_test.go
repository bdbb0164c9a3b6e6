package pathrecord

import (
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func posInf() float64 { return math.Inf(1) }

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func lookupPlain(doc map[string]any, path string) any {
	var cur any = doc
	for _, seg := range strings.Split(path, Separator) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

func TestValueFloat(t *testing.T) {
	tests := []struct {
		name    string
		in      Value
		want    float64
		wantErr bool
	}{
		{name: "integer", in: Int(42), want: 42},
		{name: "float", in: Float(-1.25), want: -1.25},
		{name: "numeric string", in: String(" 12.5 "), want: 12.5},
		{name: "text string", in: String("twelve"), wantErr: true},
		{name: "empty string", in: String(""), wantErr: true},
		{name: "true", in: Bool(true), want: 1},
		{name: "false", in: Bool(false), want: 0},
		{name: "null", in: Null(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Float()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrCast)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValueStr(t *testing.T) {
	s, ok := String("abc").Str()
	require.True(t, ok)
	require.Equal(t, "abc", s)

	_, ok = Int(1).Str()
	require.False(t, ok)
}

func TestValueInterface(t *testing.T) {
	r, err := Parse(`{"a":[1,"x",true,null,{"b":2.5}]}`)
	require.NoError(t, err)

	v, err := r.Node("a")
	require.NoError(t, err)
	require.Equal(t, KindArray, v.Kind())
	require.Equal(t, []any{
		json.Number("1"),
		"x",
		true,
		nil,
		map[string]any{"b": json.Number("2.5")},
	}, v.Interface())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "object", KindObject.String())
	require.Equal(t, "kind(99)", Kind(99).String())
}
