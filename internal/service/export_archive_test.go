package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExportArchiveRoundTrip(t *testing.T) {
	archive, err := NewExportArchive(ExportArchiveConfig{
		Dir:        t.TempDir(),
		SignSecret: "test-secret",
		Retention:  time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	archive.Start(ctx)
	defer archive.Stop()

	result := &ExportResult{
		Content:     []byte("Estudiante,Aula\ns1,c1\n"),
		ContentType: "text/csv",
		Filename:    "matricula-case-1.csv",
	}
	token, expiresAt := archive.Archive(result)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	// The write happens on a worker; wait for it to land.
	var content []byte
	require.Eventually(t, func() bool {
		file, _, err := archive.Open(token)
		if err != nil {
			return false
		}
		defer file.Close()
		content, err = io.ReadAll(file)
		return err == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, result.Content, content)
}

func TestExportArchiveRejectsBadToken(t *testing.T) {
	archive, err := NewExportArchive(ExportArchiveConfig{
		Dir:        t.TempDir(),
		SignSecret: "test-secret",
		Retention:  time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = archive.Open("not.a.valid.token")
	require.Error(t, err)
}

func TestExportArchiveRequiresRunningQueue(t *testing.T) {
	archive, err := NewExportArchive(ExportArchiveConfig{
		Dir:        t.TempDir(),
		SignSecret: "test-secret",
		Retention:  time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	// Not started: archiving degrades to a no-op token.
	token, _ := archive.Archive(&ExportResult{Content: []byte("x"), Filename: "f.csv"})
	assert.Empty(t, token)
}
