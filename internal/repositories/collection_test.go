package repositories

import (
	"context"
	"errors"
	"testing"

	"healthcrm/internal/common"
	"healthcrm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(models.Contact{ID: "c1", Name: "Ana Diaz", Email: "ana@clinic.test"})

	created, err := c.Create(ctx, models.Contact{Name: "Bo Chen"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 2, c.Len())

	found, err := c.List(ctx, "  DIAZ ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c1", found[0].ID)

	all, _ := c.List(ctx, "")
	assert.Len(t, all, 2)

	updated, err := c.Update(ctx, "c1", models.Contact{Name: "Ana Diaz-Ruiz"})
	require.NoError(t, err)
	assert.Equal(t, "c1", updated.ID)
	all, _ = c.List(ctx, "")
	assert.Equal(t, "Ana Diaz-Ruiz", all[0].Name)

	require.NoError(t, c.Delete(ctx, "c1"))
	_, err = c.Get(ctx, "c1")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.True(t, errors.Is(c.Delete(ctx, "c1"), common.ErrNotFound))
}

func TestCollection_Modify(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(models.Workflow{ID: "w1", Name: "Intake", Trigger: "patient.created", Status: models.WorkflowDraft})

	out, err := c.Modify(ctx, "w1", func(w models.Workflow) (models.Workflow, error) {
		w.Status = models.WorkflowActive
		return w, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowActive, out.Status)

	_, err = c.Modify(ctx, "w1", func(w models.Workflow) (models.Workflow, error) {
		return w, common.ErrValidation
	})
	assert.True(t, errors.Is(err, common.ErrValidation))
	got, _ := c.Get(ctx, "w1")
	assert.Equal(t, models.WorkflowActive, got.Status)

	_, err = c.Modify(ctx, "missing", func(w models.Workflow) (models.Workflow, error) { return w, nil })
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
