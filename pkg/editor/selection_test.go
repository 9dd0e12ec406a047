package editor

import (
	"testing"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Defaults(t *testing.T) {
	c := NewController()

	assert.True(t, c.Selection().IsTrigger())
	assert.Equal(t, models.InsertAfterSelected, c.Mode())
}

func TestController_Subscribe(t *testing.T) {
	c := NewController()

	type change struct {
		selection models.Selection
		mode      models.InsertMode
	}

	var changes []change

	unsubscribe := c.Subscribe(func(selection models.Selection, mode models.InsertMode) {
		changes = append(changes, change{selection, mode})
	})

	c.Select(models.SelectStep("step_1"))
	c.Select(models.SelectStep("step_1"))
	require.NoError(t, c.SetMode(models.InsertIntoTrueBranch))
	require.NoError(t, c.SetMode(models.InsertIntoTrueBranch))

	unsubscribe()
	c.Select(models.SelectTrigger())

	assert.Equal(t, []change{
		{models.SelectStep("step_1"), models.InsertAfterSelected},
		{models.SelectStep("step_1"), models.InsertIntoTrueBranch},
	}, changes)
	assert.True(t, c.Selection().IsTrigger())
}

func TestController_SetModeRejectsUnknown(t *testing.T) {
	c := NewController()

	err := c.SetMode(models.InsertMode("sideways"))
	assert.ErrorIs(t, err, ErrUnknownInsertMode)
	assert.Equal(t, DefaultInsertMode, c.Mode())
}

func TestController_UnsubscribeDuringNotify(t *testing.T) {
	c := NewController()
	calls := 0

	var unsubscribe func()
	unsubscribe = c.Subscribe(func(models.Selection, models.InsertMode) {
		calls++
		unsubscribe()
	})

	c.Select(models.SelectStep("a"))
	c.Select(models.SelectStep("b"))

	assert.Equal(t, 1, calls)
}
