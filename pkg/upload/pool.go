// Package upload provides a bounded worker pool for sending knowledge base
// documents to the backend concurrently.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Uploader sends one document to a collection. *api.Client implements it.
type Uploader interface {
	UploadKnowledgeFile(ctx context.Context, filename string, content io.Reader, collection string) (*api.UploadResult, error)
}

// Job is one file to upload.
type Job struct {
	Path       string
	Collection string
}

// Result is the outcome of a Job.
type Result struct {
	Job     Job
	Message string
	Elapsed time.Duration
	Err     error
}

// Config is the configuration options for the pool.
type Config struct {
	Uploader Uploader

	// NumWorkers is the number of concurrent uploads (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the job queue (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool uploads queued files on a fixed number of workers.
type Pool struct {
	config  *Config
	ctx     context.Context
	queue   chan Job
	results chan Result
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewPool creates a pool and starts its workers. Uploads run under ctx.
func NewPool(ctx context.Context, c *Config) (*Pool, error) {
	if c.Uploader == nil {
		return nil, errors.New("upload pool requires an Uploader")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	p := &Pool{
		config:  c,
		ctx:     ctx,
		queue:   make(chan Job, c.QueueSize),
		results: make(chan Result, c.QueueSize+c.NumWorkers),
		logger:  l,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job. It returns false, dropping the job, when the queue
// is full.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("upload queued", "path", job.Path, "collection", job.Collection)
		return true
	default:
		p.logger.Error("upload not queued, queue full, job dropped", "path", job.Path)
		return false
	}
}

// Results delivers one Result per processed job and is closed by Close. It
// buffers QueueSize+NumWorkers results; callers that keep enqueuing while
// jobs complete must read it concurrently.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs and waits for queued uploads to finish.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
	close(p.results)
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("upload worker started", "worker_id", id)

	for job := range p.queue {
		p.results <- p.processJob(job)
	}

	p.logger.Debug("upload worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) Result {
	start := time.Now()
	res := Result{Job: job}

	if err := p.ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	f, err := os.Open(job.Path)
	if err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}
	defer f.Close()

	out, err := p.config.Uploader.UploadKnowledgeFile(p.ctx, filepath.Base(job.Path), f, job.Collection)
	res.Elapsed = time.Since(start)
	if err != nil {
		p.logger.Warn("upload failed", "path", job.Path, "error", err)
		res.Err = err
		return res
	}

	res.Message = out.Message
	p.logger.Info("document uploaded",
		"path", job.Path,
		"collection", job.Collection,
		"duration", res.Elapsed,
	)
	return res
}
