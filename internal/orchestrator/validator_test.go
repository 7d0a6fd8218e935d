package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate(t *testing.T) {
	route := &Route{Workflow: "legal", SenderJID: "advocate@lawfirm.in/laptop"}

	t.Run("no domain restriction passes", func(t *testing.T) {
		assert.NoError(t, NewValidator(nil).Validate(route, "copyright question"))
	})

	t.Run("allowed domain passes", func(t *testing.T) {
		assert.NoError(t, NewValidator([]string{"LawFirm.in"}).Validate(route, "copyright question"))
	})

	t.Run("other domain fails", func(t *testing.T) {
		err := NewValidator([]string{"hospital.org"}).Validate(route, "copyright question")
		assert.ErrorContains(t, err, `sender domain "lawfirm.in"`)
	})

	t.Run("empty body fails", func(t *testing.T) {
		assert.Error(t, NewValidator(nil).Validate(route, "   "))
	})

	t.Run("oversized body fails", func(t *testing.T) {
		assert.Error(t, NewValidator(nil).Validate(route, strings.Repeat("x", MaxMessageLength+1)))
	})

	t.Run("unresolved workflow fails", func(t *testing.T) {
		assert.Error(t, NewValidator(nil).Validate(&Route{}, "hi"))
	})
}

func TestDomainAllowed(t *testing.T) {
	tests := []struct {
		domain  string
		allowed []string
		want    bool
	}{
		{"hospital.org", []string{"hospital.org"}, true},
		{"HOSPITAL.org", []string{"hospital.org"}, true},
		{"evil.org", []string{"hospital.org", "clinic.org"}, false},
		{"clinic.org", []string{"hospital.org", "clinic.org"}, true},
		{"", []string{"hospital.org"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.want, domainAllowed(tt.domain, tt.allowed))
		})
	}
}
