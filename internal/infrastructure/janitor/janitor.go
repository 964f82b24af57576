// Package janitor implements D4: a periodic sweep of the staging
// directory that reaps abandoned uploads, grounded on the teacher's
// mtime-based CleanupOldTempFiles but re-targeted at TUS sidecars
// instead of chunk temp directories.
package janitor

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tusflow/internal/domain/entities"
)

// Janitor periodically deletes staging payload+sidecar pairs whose
// upload is incomplete and older than maxAge. It never touches
// completed sidecars (offset >= size) since those are mid-finalize or
// about to be, and never touches files it cannot parse — an
// unreadable sidecar is left for manual inspection rather than guessed
// at.
type Janitor struct {
	stagingDir string
	maxAge     time.Duration
	cron       *cron.Cron
}

func New(stagingDir string, interval, maxAge time.Duration) *Janitor {
	j := &Janitor{
		stagingDir: stagingDir,
		maxAge:     maxAge,
		cron:       cron.New(),
	}

	spec := "@every " + interval.String()
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		log.Printf("janitor: failed to schedule sweep: %v", err)
	}

	return j
}

func (j *Janitor) Start() {
	j.cron.Start()
}

func (j *Janitor) Stop(ctx context.Context) {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	entries, err := os.ReadDir(j.stagingDir)
	if err != nil {
		log.Printf("janitor: read staging dir: %v", err)
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		sidecarPath := filepath.Join(j.stagingDir, entry.Name())
		stagingID := strings.TrimSuffix(entry.Name(), ".json")

		info, err := j.readSidecar(sidecarPath)
		if err != nil {
			log.Printf("janitor: skip unreadable sidecar %s: %v", entry.Name(), err)
			continue
		}

		if info.Complete() {
			continue
		}
		if now.Sub(info.CreationDate) <= j.maxAge {
			continue
		}

		payloadPath := filepath.Join(j.stagingDir, stagingID)
		if err := os.Remove(payloadPath); err != nil && !os.IsNotExist(err) {
			log.Printf("janitor: remove stale payload %s: %v", stagingID, err)
			continue
		}
		if err := os.Remove(sidecarPath); err != nil && !os.IsNotExist(err) {
			log.Printf("janitor: remove stale sidecar %s: %v", stagingID, err)
			continue
		}
		log.Printf("janitor: reaped stale upload %s (age %s)", stagingID, now.Sub(info.CreationDate))
	}
}

func (j *Janitor) readSidecar(path string) (entities.UploadInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.UploadInfo{}, err
	}
	var info entities.UploadInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return entities.UploadInfo{}, err
	}
	return info, nil
}
