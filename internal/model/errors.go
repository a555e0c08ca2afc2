package model

import (
	"errors"
	"fmt"
)

// ModelError reports an unknown model object or an invalid definition.
type ModelError struct {
	Object  string // "cube", "dimension", "measure", "attribute", ...
	Name    string
	Message string
}

func (e *ModelError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Object, e.Message)
	}
	return fmt.Sprintf("%s '%s': %s", e.Object, e.Name, e.Message)
}

// IsModelError checks if an error is (or wraps) a ModelError.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

func notFound(object, name, parent string) error {
	return &ModelError{Object: object, Name: name, Message: "not found in " + parent}
}
