package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelValidate(t *testing.T) {
	cases := []struct {
		model Model
		ok    bool
	}{
		{Model{Family: FamilyDefault}, true},
		{Model{Family: FamilyJM, Param: 0.1}, true},
		{Model{Family: FamilyJM, Param: 1}, true},
		{Model{Family: FamilyJM, Param: 0}, false},
		{Model{Family: FamilyJM, Param: 1.5}, false},
		{Model{Family: FamilyDirichlet, Param: 0}, true},
		{Model{Family: FamilyDirichlet, Param: -1}, false},
		{Model{Family: "bm99"}, false},
	}
	for _, tc := range cases {
		err := tc.model.Validate()
		if tc.ok {
			assert.NoError(t, err, tc.model.String())
		} else {
			assert.Error(t, err, tc.model.String())
		}
	}
}

func TestModelString(t *testing.T) {
	assert.Equal(t, "jm(0.5)", Model{Family: FamilyJM, Param: 0.5}.String())
	assert.Equal(t, "dir(2000)", Model{Family: FamilyDirichlet, Param: 2000}.String())
	assert.Equal(t, "default", Model{Family: FamilyDefault}.String())
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("dir")
	require.NoError(t, err)
	assert.Equal(t, "mu", f.ParamName())
	_, err = ParseFamily("lm")
	require.Error(t, err)
}

func TestDocIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, DocIDs([]Hit{{DocID: "b", Score: 2}, {DocID: "a", Score: 1}}))
}
