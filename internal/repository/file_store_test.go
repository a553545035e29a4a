package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"MarketBrief/internal/domain/models"
	domrepo "MarketBrief/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "market_data.json", "Daily_write_ups")
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, domrepo.ErrSnapshotNotFound)

	doc := &models.SnapshotDocument{
		SpreadSeries:       []string{"2025-03-14: 0.33"},
		Indices:            "^GSPC: Open: 1.00 Close: 2.00. ",
		EconomicIndicators: map[string]string{"CPI": "2025-02-01: 319.08"},
	}
	loc, err := s.Save(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "market_data.json"), loc)

	raw, err := s.Load(ctx)
	require.NoError(t, err)
	var got models.SnapshotDocument
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, doc.SpreadSeries, got.SpreadSeries)
	assert.Equal(t, doc.Indices, got.Indices)
	assert.Equal(t, doc.EconomicIndicators, got.EconomicIndicators)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStoreWriteups(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "market_data.json", "Daily_write_ups")
	ctx := context.Background()

	_, err := s.LoadWriteup(ctx, "2025-03-14")
	assert.ErrorIs(t, err, domrepo.ErrWriteupNotFound)

	path, err := s.SaveWriteup(ctx, "2025-03-14", "PM Market Brief by Gemini\n...")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Daily_write_ups", "2025-03-14dailywriteup.txt"), path)

	text, err := s.LoadWriteup(ctx, "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "PM Market Brief by Gemini\n...", text)

	_, err = s.SaveWriteup(ctx, "", "x")
	assert.Error(t, err)
}

func TestFileStoreHonorsCancelledContext(t *testing.T) {
	s := NewFileStore(t.TempDir(), "market_data.json", "w")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, &models.SnapshotDocument{})
	assert.ErrorIs(t, err, context.Canceled)
}
