package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/cimas-digital/matricula-api/pkg/errors"
	"github.com/cimas-digital/matricula-api/pkg/jobs"
	"github.com/cimas-digital/matricula-api/pkg/storage"
)

// ExportArchive keeps a copy of every rendered export on disk. Writes happen
// off the request path through a worker queue; each archived copy is
// addressable by a signed, expiring token so it can be re-downloaded without
// re-rendering.
type ExportArchive struct {
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	retention time.Duration
	logger    *zap.Logger
}

type archiveJobPayload struct {
	RelPath string
	Content []byte
}

// NewExportArchive wires the archive's storage, signer and write queue.
func NewExportArchive(cfg ExportArchiveConfig, logger *zap.Logger) (*ExportArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := storage.NewLocalStorage(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("init export archive: %w", err)
	}
	a := &ExportArchive{
		store:     store,
		signer:    storage.NewSignedURLSigner(cfg.SignSecret, cfg.Retention),
		retention: cfg.Retention,
		logger:    logger,
	}
	a.queue = jobs.NewQueue("export-archive", a.handleJob, jobs.QueueConfig{
		Workers: 2,
		Logger:  logger,
	})
	return a, nil
}

// ExportArchiveConfig configures the archive.
type ExportArchiveConfig struct {
	Dir        string
	SignSecret string
	Retention  time.Duration
}

// Start launches the archive workers and the retention sweep.
func (a *ExportArchive) Start(ctx context.Context) {
	a.queue.Start(ctx)
	go a.sweep(ctx)
}

// Stop drains the archive workers.
func (a *ExportArchive) Stop() {
	a.queue.Stop()
}

// Archive enqueues the rendered export for persistence and returns a signed
// download token for the stored copy. Archiving is best effort: a full queue
// or a failed write never fails the export itself.
func (a *ExportArchive) Archive(result *ExportResult) (string, time.Time) {
	jobID := uuid.NewString()
	relPath := path.Join(time.Now().UTC().Format("2006/01/02"), jobID+"-"+result.Filename)

	token, expiresAt, err := a.signer.Generate(jobID, relPath)
	if err != nil {
		a.logger.Warn("export archive token generation failed", zap.Error(err))
		return "", time.Time{}
	}

	content := make([]byte, len(result.Content))
	copy(content, result.Content)
	if err := a.queue.Enqueue(jobs.Job{
		ID:      jobID,
		Type:    "archive-export",
		Payload: archiveJobPayload{RelPath: relPath, Content: content},
	}); err != nil {
		a.logger.Warn("export archive enqueue failed", zap.String("job_id", jobID), zap.Error(err))
		return "", time.Time{}
	}
	return token, expiresAt
}

// Open validates the token and returns a handle on the archived file.
func (a *ExportArchive) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := a.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}
	file, err := a.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "archived export not found")
	}
	return file, path.Base(relPath), nil
}

func (a *ExportArchive) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(archiveJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if _, err := a.store.Save(payload.RelPath, payload.Content); err != nil {
		return err
	}
	a.logger.Debug("export archived", zap.String("path", payload.RelPath))
	return nil
}

// sweep deletes archived exports past their retention window.
func (a *ExportArchive) sweep(ctx context.Context) {
	if a.retention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := a.store.CleanupOlderThan(a.retention)
			if err != nil {
				a.logger.Warn("export archive cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				a.logger.Info("export archive cleaned up", zap.Int("deleted", len(deleted)))
			}
		}
	}
}
