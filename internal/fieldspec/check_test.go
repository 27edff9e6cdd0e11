package fieldspec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xds/internal/diagnostic"
)

func TestFieldSpec_Check(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		value   any
		wantErr bool
	}{
		{"within bounds", "int#gt=45#lt=50", "47", false},
		{"below lower bound", "int#gt=45#lt=50", "45", true},
		{"above upper bound", "int#gt=45#lt=50", 50, true},
		{"min is inclusive", "float#min=1", 1.0, false},
		{"max is inclusive", "float#max=1", 1, false},
		{"ne", "str#ne=x", "x", true},
		{"in member", "int#in=17,18,19", 18, false},
		{"in non-member", "int#in=17,18,19", 20, true},
		{"enum strings", "str#enum=bar,line", "pie", true},
		{"range inside", "int#range=1,9", 9, false},
		{"range outside", "int#range=1,9", 10, true},
		{"has regexp", "str#has=b.r", "foobar", false},
		{"has miss", "str#has=^x", "foobar", true},
		{"start", "str#start=foo", "foobar", false},
		{"start miss", "str#start=bar", "foobar", true},
		{"end", "str#end=bar", "foobar", false},
		{"list elements bounded", "int#list#le=3", "1,2,3", false},
		{"list element out of bounds", "int#list#le=3", []any{1, 4}, true},
		{"list has", "str#list#has=b", "a,b,c", false},
		{"list start miss", "str#list#start=b", "a,b", true},
		{"list end", "str#list#end=b", "a,b", false},
		{"list membership", "str#list#in=a,b", "a,c", true},
		{"date bound", "date#ge=2024-01-01", "2024-06-01", false},
		{"date bound miss", "date#ge=2024-01-01", "2023-06-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := ParseField("f", tt.spec)
			require.NoError(t, err)

			v, err := fs.CoerceValue(tt.value)
			require.NoError(t, err)

			err = fs.Check("f", v)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, diagnostic.ErrValidation)

			var de *diagnostic.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "f", de.Field)
		})
	}
}

func TestFieldSpec_CheckNilPasses(t *testing.T) {
	fs, err := Parse("int#req#gt=1")
	require.NoError(t, err)
	assert.NoError(t, fs.Check("f", nil))
}

func TestFieldSpec_CoerceValue(t *testing.T) {
	tests := []struct {
		spec  string
		in    any
		want  any
		isErr bool
	}{
		{"int", 3.0, int64(3), false},
		{"int", 3.5, nil, true},
		{"int", "0x10", int64(16), false},
		{"float", 2, 2.0, false},
		{"bool", "off", false, false},
		{"bool", "maybe", nil, true},
		{"bool", 1, true, false},
		{"str", 12, "12", false},
		{"str#list", "a, b", []any{"a", "b"}, false},
		{"int#list", 7, []any{int64(7)}, false},
		{"any", []int{1}, []int{1}, false},
		{"dict", map[any]any{"a": 1}, map[string]any{"a": 1}, false},
		{"dict", 5, nil, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.spec, tt.in), func(t *testing.T) {
			fs, err := Parse(tt.spec)
			require.NoError(t, err)

			got, err := fs.CoerceValue(tt.in)
			if tt.isErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ExampleParse() {
	fs, err := Parse("int=42#req#uniq#key#gt=45#lt=50")
	if err != nil {
		panic(err)
	}

	fmt.Println(fs.DType(), fs.Default, fs.Required())
	fmt.Println(fs)
	// Output:
	// int 42 true
	// int=42#key#required#unique#gt=45#lt=50
}
