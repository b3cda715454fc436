package parser

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/eambriza/pmp-coach/internal/model"
)

// JobState is the externally visible state of an upload.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "in_progress"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// JobStatus describes the latest upload.
type JobStatus struct {
	State    JobState `json:"state"`
	Filename string   `json:"filename,omitempty"`
	Count    int      `json:"count"`
	Error    string   `json:"error,omitempty"`
}

// Upload identifies the file behind an import.
type Upload struct {
	Filename string
	Hash     string
}

// HashData returns the hex sha256 of an uploaded file, used to skip
// re-importing identical content.
func HashData(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Importer runs one parse at a time in the background and hands the
// result to a callback. There are no partial results: the job either
// succeeds with the full set or fails with a reason.
type Importer struct {
	parser *Parser
	apply  func(ctx context.Context, src Upload, questions []model.Question) error

	mu     sync.Mutex
	status JobStatus
	wg     sync.WaitGroup
}

// NewImporter creates an Importer. apply is called with the parsed set on
// success; an error from apply fails the job.
func NewImporter(p *Parser, apply func(ctx context.Context, src Upload, questions []model.Question) error) *Importer {
	return &Importer{parser: p, apply: apply, status: JobStatus{State: JobIdle}}
}

// Start begins parsing data in the background. It returns false if an
// import is already in progress.
func (im *Importer) Start(ctx context.Context, filename string, data []byte) bool {
	im.mu.Lock()
	if im.status.State == JobRunning {
		im.mu.Unlock()
		return false
	}
	im.status = JobStatus{State: JobRunning, Filename: filename}
	im.wg.Add(1)
	im.mu.Unlock()

	go func() {
		defer im.wg.Done()
		im.finish(im.run(ctx, filename, data))
	}()
	return true
}

func (im *Importer) run(ctx context.Context, filename string, data []byte) (int, error) {
	questions, err := im.parser.Parse(filename, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	if im.apply != nil {
		if err := im.apply(ctx, Upload{Filename: filename, Hash: HashData(data)}, questions); err != nil {
			return 0, err
		}
	}
	return len(questions), nil
}

func (im *Importer) finish(count int, err error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err != nil {
		slog.Warn("question import failed", "file", im.status.Filename, "error", err)
		im.status.State = JobFailed
		im.status.Error = err.Error()
		return
	}
	im.status.State = JobSucceeded
	im.status.Count = count
}

// Status returns the state of the latest import.
func (im *Importer) Status() JobStatus {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.status
}

// Wait blocks until the running import, if any, has finished.
func (im *Importer) Wait() {
	im.wg.Wait()
}
