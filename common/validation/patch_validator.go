package validation

import (
	"strings"

	"github.com/lyzr/recipes/common/apperrors"
)

// MaxPatchOperations caps a single recipe patch
const MaxPatchOperations = 100

var patchRoots = []string{"/name", "/ingredients"}

// PatchValidator checks RFC 6902 operations against the recipe document
// shape {name, ingredients} before they are applied
type PatchValidator struct{}

// NewPatchValidator creates a new patch validator
func NewPatchValidator() *PatchValidator {
	return &PatchValidator{}
}

// ValidateOperations validates all patch operations
func (v *PatchValidator) ValidateOperations(operations []map[string]interface{}) error {
	if len(operations) == 0 {
		return apperrors.Invalid("patch contains no operations")
	}
	if len(operations) > MaxPatchOperations {
		return apperrors.Invalid("patch has %d operations, limit is %d", len(operations), MaxPatchOperations)
	}

	for i, op := range operations {
		if err := v.validateOperation(op, i); err != nil {
			return err
		}
	}

	return nil
}

func (v *PatchValidator) validateOperation(op map[string]interface{}, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return apperrors.Invalid("operation %d: missing or invalid 'op' field", index)
	}

	path, ok := op["path"].(string)
	if !ok {
		return apperrors.Invalid("operation %d: missing or invalid 'path' field", index)
	}
	if !allowedPath(path) {
		return apperrors.Invalid("operation %d: path %q is outside /name and /ingredients", index, path)
	}

	switch opType {
	case "add", "replace", "test":
		if _, ok := op["value"]; !ok {
			return apperrors.Invalid("operation %d: 'value' required for %s operation", index, opType)
		}
		if path == "/name" && opType != "test" {
			if _, ok := op["value"].(string); !ok {
				return apperrors.Invalid("operation %d: name must be a string, got %T", index, op["value"])
			}
		}

	case "remove":
		if path == "/name" || path == "/ingredients" {
			return apperrors.Invalid("operation %d: %s cannot be removed", index, path)
		}

	case "move", "copy":
		from, ok := op["from"].(string)
		if !ok || !allowedPath(from) {
			return apperrors.Invalid("operation %d: %s needs a 'from' inside /name or /ingredients", index, opType)
		}

	default:
		return apperrors.Invalid("operation %d: unsupported operation type: %s", index, opType)
	}

	return nil
}

func allowedPath(path string) bool {
	for _, root := range patchRoots {
		if path == root || strings.HasPrefix(path, root+"/") {
			return true
		}
	}
	return false
}
