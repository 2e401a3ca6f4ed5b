package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	u, err := New(" u1 ", "  Ada ", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ada", u.DisplayName)
	assert.Equal(t, now, u.CreatedAt)

	_, err = New("", "Ada", now)
	assert.ErrorIs(t, err, shared.ErrInvalidUser)
}
