package domain_test

import (
	"testing"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCollidesWithIdentity(t *testing.T) {
	assert.True(t, domain.CollidesWithIdentity(domain.ReservedExperimentID))
	assert.False(t, domain.CollidesWithIdentity("checkout"))
	assert.False(t, domain.CollidesWithIdentity("user_id_v2"))
}

func TestIsIdentityKey(t *testing.T) {
	assert.True(t, domain.IsIdentityKey(domain.UserIdentityKey))
	assert.True(t, domain.IsIdentityKey("https://example.com/"+domain.UserIdentityKey))
	assert.False(t, domain.IsIdentityKey(domain.AssignmentKey("checkout")))
	assert.False(t, domain.IsIdentityKey("x"+domain.UserIdentityKey))
}
