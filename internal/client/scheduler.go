package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tusflow/internal/domain/entities"
	"tusflow/internal/infrastructure/partition"
	"tusflow/pkg/constants"
)

// Scheduler is C6: drives a queue of QueuedFiles through the TUS
// protocol, picking a knapsack-style batch that fills maxStreamCount,
// running every session in the batch in parallel, and waiting for the
// whole batch to settle before re-planning. Grounded on the teacher's
// cmd/client/main.go semaphore-bounded worker pool, generalized from a
// fixed concurrency limit into a part-weighted capacity.
type Scheduler struct {
	session   *Session
	partition partition.Policy

	withFilename    string
	onDuplicate     string
	destinationPath string

	maxStreamCount   int
	maxFileSelection int

	mu       sync.Mutex
	pending  []*entities.QueuedFile
	active   map[string]*entities.QueuedFile
	done     []*entities.QueuedFile
	sessions map[string]context.CancelFunc
}

func NewScheduler(session *Session, policy partition.Policy, withFilename, onDuplicate, destinationPath string, maxStreamCount, maxFileSelection int) *Scheduler {
	return &Scheduler{
		session:          session,
		partition:        policy,
		withFilename:     withFilename,
		onDuplicate:      onDuplicate,
		destinationPath:  destinationPath,
		maxStreamCount:   maxStreamCount,
		maxFileSelection: maxFileSelection,
		active:           make(map[string]*entities.QueuedFile),
		sessions:         make(map[string]context.CancelFunc),
	}
}

// Enqueue adds a file to the pending queue under a freshly generated
// UUID.
func (s *Scheduler) Enqueue(path string, size int64) *entities.QueuedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	qf := &entities.QueuedFile{
		ID:              uuid.NewString(),
		Path:            path,
		Size:            size,
		Status:          constants.StatusPending,
		Filename:        filepath.Base(path),
		WithFilename:    s.withFilename,
		OnDuplicate:     s.onDuplicate,
		DestinationPath: s.destinationPath,
	}
	s.pending = append(s.pending, qf)
	return qf
}

// Remove aborts every outstanding session for fileID and drops it from
// whichever bucket currently holds it. Clearing completed/pending
// never touches an uploading file, per the termination contract.
func (s *Scheduler) Remove(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cancel := range s.sessions {
		if key == fileID || hasPartPrefix(key, fileID) {
			cancel()
			delete(s.sessions, key)
		}
	}

	s.pending = removeByID(s.pending, fileID)
	delete(s.active, fileID)
	s.done = removeByID(s.done, fileID)
}

func hasPartPrefix(sessionKey, fileID string) bool {
	prefix := fileID + "-"
	return len(sessionKey) > len(prefix) && sessionKey[:len(prefix)] == prefix
}

func removeByID(list []*entities.QueuedFile, id string) []*entities.QueuedFile {
	out := list[:0]
	for _, qf := range list {
		if qf.ID != id {
			out = append(out, qf)
		}
	}
	return out
}

// Snapshot returns every file currently known to the scheduler,
// across the pending, active, and done buckets, for progress
// reporting by a caller.
func (s *Scheduler) Snapshot() []*entities.QueuedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.QueuedFile, 0, len(s.pending)+len(s.active)+len(s.done))
	out = append(out, s.pending...)
	for _, qf := range s.active {
		out = append(out, qf)
	}
	out = append(out, s.done...)
	return out
}

// ClearCompleted drops every file currently in the completed bucket.
func (s *Scheduler) ClearCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = nil
}

// ClearPending drops every file still waiting to be picked up.
func (s *Scheduler) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Run drives the queue to exhaustion: select a batch, launch it, await
// settlement, re-plan. Returns once no pending file remains.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return nil
		}
		batch := s.selectBatch()
		s.mu.Unlock()

		if err := s.runBatch(ctx, batch); err != nil {
			return err
		}
	}
}

// selectBatch picks the knapsack-maximal subset of s.pending (capped
// at maxFileSelection candidates) whose summed part counts fits
// maxStreamCount, via exhaustive backtracking with a running best. If
// no non-empty subset fits, it forces the first pending file through
// alone so oversized files still make forward progress. Caller must
// hold s.mu. Selected files are moved from pending into active.
func (s *Scheduler) selectBatch() []*entities.QueuedFile {
	candidates := s.pending
	if len(candidates) > s.maxFileSelection {
		candidates = candidates[:s.maxFileSelection]
	}

	weights := make([]int, len(candidates))
	for i, qf := range candidates {
		weights[i] = s.partition.PartCount(qf.Size)
	}

	bestSum := 0
	var bestSet []int
	var current []int
	currentSum := 0

	var backtrack func(idx int)
	backtrack = func(idx int) {
		if idx == len(candidates) {
			if currentSum > bestSum {
				bestSum = currentSum
				bestSet = append([]int(nil), current...)
			}
			return
		}
		// Skip this candidate.
		backtrack(idx + 1)
		// Include it, if capacity allows.
		if currentSum+weights[idx] <= s.maxStreamCount {
			current = append(current, idx)
			currentSum += weights[idx]
			backtrack(idx + 1)
			current = current[:len(current)-1]
			currentSum -= weights[idx]
		}
	}
	backtrack(0)

	var selected []*entities.QueuedFile
	if len(bestSet) == 0 {
		selected = []*entities.QueuedFile{candidates[0]}
	} else {
		for _, idx := range bestSet {
			selected = append(selected, candidates[idx])
		}
	}

	for _, qf := range selected {
		qf.Status = constants.StatusUploading
		s.pending = removeByID(s.pending, qf.ID)
		s.active[qf.ID] = qf
	}
	return selected
}

// runBatch launches every file in the batch in parallel and waits for
// all of them to settle (success or failure) before returning, per
// §4.6's await-all-settled barrier.
func (s *Scheduler) runBatch(ctx context.Context, batch []*entities.QueuedFile) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, qf := range batch {
		qf := qf
		g.Go(func() error {
			s.uploadFile(gctx, qf)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) uploadFile(ctx context.Context, qf *entities.QueuedFile) {
	defer s.settle(qf)

	partCount := s.partition.PartCount(qf.Size)
	var err error
	if partCount <= 1 {
		err = s.uploadSolo(ctx, qf)
	} else {
		err = s.uploadMultipart(ctx, qf, partCount)
	}

	s.mu.Lock()
	if err != nil {
		qf.Status = constants.StatusError
		qf.Err = err
	} else {
		qf.Status = constants.StatusCompleted
		qf.Progress = 100
		qf.UploadedBytes = qf.Size
	}
	s.mu.Unlock()
}

func (s *Scheduler) settle(qf *entities.QueuedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, qf.ID)
	s.done = append(s.done, qf)
}

func (s *Scheduler) uploadSolo(ctx context.Context, qf *entities.QueuedFile) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	s.registerSession(qf.ID, cancel)
	defer s.unregisterSession(qf.ID)

	f, err := os.Open(qf.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", qf.Path, err)
	}
	defer f.Close()

	meta := entities.UploadMetadata{
		Filename:        qf.Filename,
		Filetype:        qf.Filetype,
		WithFilename:    qf.WithFilename,
		OnDuplicate:     qf.OnDuplicate,
		DestinationPath: qf.DestinationPath,
	}

	location, err := s.session.Create(sessionCtx, qf.Size, meta)
	if err != nil {
		return err
	}

	return s.streamWhole(sessionCtx, location, f, qf)
}

func (s *Scheduler) uploadMultipart(ctx context.Context, qf *entities.QueuedFile, partCount int) error {
	groupCtx, groupCancel := context.WithCancel(ctx)
	defer groupCancel()

	multipartID := uuid.NewString()
	partSize := qf.Size / int64(partCount)
	if qf.Size%int64(partCount) != 0 {
		partSize++
	}

	g, gctx := errgroup.WithContext(groupCtx)
	for i := 1; i <= partCount; i++ {
		i := i
		start := int64(i-1) * partSize
		size := partSize
		if start+size > qf.Size {
			size = qf.Size - start
		}
		if size <= 0 {
			continue
		}

		g.Go(func() error {
			sessionKey := fmt.Sprintf("%s-%d", qf.ID, i)
			sessionCtx, cancel := context.WithCancel(gctx)
			s.registerSession(sessionKey, cancel)
			defer s.unregisterSession(sessionKey)

			if err := s.uploadPart(sessionCtx, qf, multipartID, i, partCount, start, size); err != nil {
				groupCancel() // first part error short-circuits the rest
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) uploadPart(ctx context.Context, qf *entities.QueuedFile, multipartID string, partIndex, totalParts int, start, size int64) error {
	f, err := os.Open(qf.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", qf.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(start, 0); err != nil {
		return fmt.Errorf("seek part %d: %w", partIndex, err)
	}

	meta := entities.UploadMetadata{
		Filename:         qf.Filename,
		Filetype:         qf.Filetype,
		WithFilename:     qf.WithFilename,
		OnDuplicate:      qf.OnDuplicate,
		DestinationPath:  qf.DestinationPath,
		MultipartID:      multipartID,
		PartIndex:        fmt.Sprintf("%d", partIndex),
		TotalParts:       fmt.Sprintf("%d", totalParts),
		OriginalFileSize: fmt.Sprintf("%d", qf.Size),
	}

	location, err := s.session.Create(ctx, size, meta)
	if err != nil {
		return err
	}

	limited := &limitedReaderAt{r: f, remaining: size}
	return s.streamWhole(ctx, location, limited, qf)
}

// streamWhole drives a single TUS session's whole body through Append
// in chunkSize-ish slices, updating qf.UploadedBytes/Progress as it
// goes. Clamped to 99% until the final Append reports completion, per
// §4.6's progress-aggregation rule.
func (s *Scheduler) streamWhole(ctx context.Context, location string, r io.Reader, qf *entities.QueuedFile) error {
	const chunkSize = 8 * 1024 * 1024
	var offset int64

	buf := make([]byte, chunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			newOffset, complete, err := s.session.Append(ctx, location, offset, buf[:n])
			if err != nil {
				return err
			}
			offset = newOffset

			s.mu.Lock()
			qf.UploadedBytes += int64(n)
			qf.Progress = progressOf(qf.UploadedBytes, qf.Size, complete)
			s.mu.Unlock()

			if complete {
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}

func progressOf(uploaded, total int64, complete bool) int {
	if complete {
		return 100
	}
	if total <= 0 {
		return 0
	}
	pct := int(uploaded * 100 / total)
	if pct > 99 {
		pct = 99
	}
	return pct
}

func (s *Scheduler) registerSession(key string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = cancel
}

func (s *Scheduler) unregisterSession(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// limitedReaderAt bounds reads from an *os.File already seeked to a
// part's start offset to that part's declared size, so sibling parts
// sharing one file handle per goroutine never read into the next
// part's bytes.
type limitedReaderAt struct {
	r         *os.File
	remaining int64
}

func (l *limitedReaderAt) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
