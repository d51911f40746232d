package repository

import (
	"context"
	"testing"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestContactRepository(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewContactRepository(testDB)
	ctx := context.Background()

	first := &model.ContactMessage{Name: "Ana", Email: "ana@example.com", Subject: "Commission", Message: "A portrait of my dog?"}
	second := &model.ContactMessage{Name: "Ben", Email: "ben@example.com", Subject: "Shipping", Message: "Do you ship abroad?"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.MarkHandled(ctx, first.ID))
	assert.ErrorIs(t, repo.MarkHandled(ctx, 999), gorm.ErrRecordNotFound)

	all, err := repo.FindAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := repo.FindAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
}
