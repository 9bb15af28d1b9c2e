package validation

import (
	"testing"

	"github.com/lyzr/recipes/common/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIngredientRules(t *testing.T) {
	rules, err := NewIngredientRules(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultIngredientRules, rules.Exprs())

	tests := []struct {
		name    string
		ingr    string
		amount  float64
		unit    string
		wantErr bool
	}{
		{"valid", "flour", 200, "g", false},
		{"zero amount", "salt", 0, "pinch", false},
		{"empty name", "", 1, "g", false},
		{"negative amount", "egg", -1, "unit", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Validate(tt.ingr, tt.amount, tt.unit)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustomIngredientRules(t *testing.T) {
	rules, err := NewIngredientRules([]string{" unit in ['g', 'ml', 'unit'] ", "", "amount < 10000.0"})
	require.NoError(t, err)
	assert.Len(t, rules.Exprs(), 2)

	assert.NoError(t, rules.Validate("milk", 250, "ml"))

	err = rules.Validate("milk", 1, "cup")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
	assert.Contains(t, err.Error(), "unit in")

	assert.ErrorIs(t, rules.Validate("sugar", 20000, "g"), apperrors.ErrInvalid)
}

func TestNonEmptyNameIsOptIn(t *testing.T) {
	rules, err := NewIngredientRules([]string{"name.size() > 0", "amount >= 0.0"})
	require.NoError(t, err)

	assert.ErrorIs(t, rules.Validate("", 1, "g"), apperrors.ErrInvalid)
	assert.NoError(t, rules.Validate("flour", 1, "g"))
}

func TestIngredientRulesCompileErrors(t *testing.T) {
	_, err := NewIngredientRules([]string{"name.size() >"})
	assert.Error(t, err)

	_, err = NewIngredientRules([]string{"amount + 1.0"})
	assert.ErrorContains(t, err, "must return bool")

	_, err = NewIngredientRules([]string{"calories > 0"})
	assert.Error(t, err, "undeclared variables are rejected")
}

func TestNilRulesAcceptEverything(t *testing.T) {
	var rules *IngredientRules
	assert.NoError(t, rules.Validate("", -5, ""))
}

func TestPatchValidator(t *testing.T) {
	v := NewPatchValidator()

	tests := []struct {
		name    string
		ops     []map[string]interface{}
		wantErr string
	}{
		{
			name: "rename and append",
			ops: []map[string]interface{}{
				{"op": "replace", "path": "/name", "value": "Crepes"},
				{"op": "add", "path": "/ingredients/-", "value": map[string]interface{}{"name": "milk", "amount": 300.0, "unit": "ml"}},
			},
		},
		{
			name: "remove one ingredient",
			ops:  []map[string]interface{}{{"op": "remove", "path": "/ingredients/0"}},
		},
		{
			name: "move within ingredients",
			ops:  []map[string]interface{}{{"op": "move", "from": "/ingredients/0", "path": "/ingredients/1"}},
		},
		{
			name:    "empty patch",
			ops:     nil,
			wantErr: "no operations",
		},
		{
			name:    "foreign path",
			ops:     []map[string]interface{}{{"op": "replace", "path": "/id", "value": "x"}},
			wantErr: "outside",
		},
		{
			name:    "prefix lookalike",
			ops:     []map[string]interface{}{{"op": "replace", "path": "/names", "value": "x"}},
			wantErr: "outside",
		},
		{
			name:    "missing value",
			ops:     []map[string]interface{}{{"op": "add", "path": "/ingredients/-"}},
			wantErr: "'value' required",
		},
		{
			name:    "non-string name",
			ops:     []map[string]interface{}{{"op": "replace", "path": "/name", "value": 42.0}},
			wantErr: "name must be a string",
		},
		{
			name:    "remove root",
			ops:     []map[string]interface{}{{"op": "remove", "path": "/ingredients"}},
			wantErr: "cannot be removed",
		},
		{
			name:    "unknown op",
			ops:     []map[string]interface{}{{"op": "merge", "path": "/name"}},
			wantErr: "unsupported operation",
		},
		{
			name:    "missing op",
			ops:     []map[string]interface{}{{"path": "/name"}},
			wantErr: "'op'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateOperations(tt.ops)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
