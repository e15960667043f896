package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	SpaceID int64  `json:"space_id" validate:"required,gt=0"`
	Title   string `json:"title,omitempty" validate:"required,max=5"`
	Status  string `json:"status" validate:"omitempty,oneof=pending confirmed"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{SpaceID: 1, Title: "ok"}))

	errs := Validate(sample{Title: "too long", Status: "done"})
	assert.Equal(t, "required", errs["space_id"])
	assert.Equal(t, "max=5", errs["title"])
	assert.Equal(t, "oneof=pending confirmed", errs["status"])
}

func TestValidate_NonStruct(t *testing.T) {
	errs := Validate(42)
	assert.Contains(t, errs, "_")
}
