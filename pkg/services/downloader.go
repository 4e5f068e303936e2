package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrRetriesExhausted is returned when a page kept failing after every node
// reassignment allowed.
var ErrRetriesExhausted = errors.New("node retries exhausted")

const (
	DefaultWorkers        = 4
	DefaultMaxNodeRetries = 5
)

// DownloadProgress represents the progress of a download operation
type DownloadProgress struct {
	MangaID       string
	ChapterID     string
	CurrentPage   int
	TotalPages    int
	Status        string // "downloading", "complete", "skipped", "error"
	Error         error
	ChapterNumber string
}

// Network is the part of the API the downloader needs.
type Network interface {
	ReadChapter(ctx context.Context, chapterID string, forcePort443 bool) (*mangadex.Handoff, error)
	Report(ctx context.Context, r mangadex.PageReport) error
}

type DownloaderOptions struct {
	Workers        int
	MaxNodeRetries int
	DataSaver      bool
	ForcePort443   bool
}

// Downloader fetches chapter pages from at-home nodes into a directory.
type Downloader struct {
	network      Network
	fs           afero.Fs
	client       *http.Client
	log          logrus.FieldLogger
	now          func() time.Time
	opts         DownloaderOptions
	progressChan chan DownloadProgress
	closeOnce    sync.Once
}

// NewDownloader creates a new Downloader instance
func NewDownloader(network Network, fs afero.Fs, client *http.Client, log logrus.FieldLogger, opts DownloaderOptions) *Downloader {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxNodeRetries <= 0 {
		opts.MaxNodeRetries = DefaultMaxNodeRetries
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		network:      network,
		fs:           fs,
		client:       client,
		log:          log,
		now:          time.Now,
		opts:         opts,
		progressChan: make(chan DownloadProgress, 100),
	}
}

// GetProgressChannel returns the channel for receiving download progress updates
func (d *Downloader) GetProgressChannel() <-chan DownloadProgress {
	return d.progressChan
}

// PageFileName names the page at index (0-based) of a chapter with total
// pages: the ordinal padded to the digit count of total, keeping the
// extension of the node file.
func PageFileName(index, total int, original string) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%0*d%s", width, index+1, path.Ext(original))
}

// chapterRun is the shared state of one chapter download. Workers read the
// current handoff from it and ask it for a new node after a failure.
type chapterRun struct {
	d         *Downloader
	chapterID string

	mu         sync.Mutex
	handoff    *mangadex.Handoff
	generation int
}

// current returns the handoff to use and its generation, requesting a new one
// when none is held or the held one expired.
func (r *chapterRun) current(ctx context.Context) (*mangadex.Handoff, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handoff == nil || r.handoff.Expired(r.d.now()) {
		if err := r.renew(ctx); err != nil {
			return nil, 0, err
		}
	}
	return r.handoff, r.generation, nil
}

// reassign replaces the handoff of generation failed. When another worker
// already replaced it, the newer handoff is kept.
func (r *chapterRun) reassign(ctx context.Context, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generation != failed {
		return nil
	}
	return r.renew(ctx)
}

// renew must be called with mu held.
func (r *chapterRun) renew(ctx context.Context) error {
	h, err := r.d.network.ReadChapter(ctx, r.chapterID, r.d.opts.ForcePort443)
	if err != nil {
		return fmt.Errorf("failed to get at-home node: %w", err)
	}
	r.handoff = h
	r.generation++
	r.d.log.WithFields(logrus.Fields{
		"chapter":    r.chapterID,
		"node":       h.NodeURL,
		"generation": r.generation,
	}).Debug("using at-home node")
	return nil
}

// DownloadChapter downloads every page of a chapter into targetDir. A failed
// page fails the whole chapter; the caller owns cleanup of targetDir.
func (d *Downloader) DownloadChapter(ctx context.Context, chapterID, targetDir string) error {
	if chapterID == "" {
		return errors.New("chapter id cannot be empty")
	}

	run := &chapterRun{d: d, chapterID: chapterID}
	h, _, err := run.current(ctx)
	if err != nil {
		return err
	}
	total := len(h.FileNames(d.opts.DataSaver))
	if total == 0 {
		return fmt.Errorf("chapter %s has no pages", chapterID)
	}

	if err := d.fs.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create chapter directory: %w", err)
	}

	d.sendProgress(DownloadProgress{ChapterID: chapterID, TotalPages: total, Status: "downloading"})

	jobs := make(chan int, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		done atomic.Int32
	)
	for w := 0; w < min(d.opts.Workers, total); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := d.fetchPage(ctx, run, idx, total, targetDir); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}
				d.sendProgress(DownloadProgress{
					ChapterID:   chapterID,
					CurrentPage: int(done.Add(1)),
					TotalPages:  total,
					Status:      "downloading",
				})
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		err := fmt.Errorf("failed to download chapter %s: %w", chapterID, errors.Join(errs...))
		d.sendProgress(DownloadProgress{ChapterID: chapterID, TotalPages: total, Status: "error", Error: err})
		return err
	}

	d.sendProgress(DownloadProgress{ChapterID: chapterID, CurrentPage: total, TotalPages: total, Status: "complete"})
	return nil
}

// fetchPage stores one page, moving to a new node after each transport
// failure until MaxNodeRetries reassignments were used.
func (d *Downloader) fetchPage(ctx context.Context, run *chapterRun, idx, total int, targetDir string) error {
	var lastErr error
	for attempt := 0; attempt <= d.opts.MaxNodeRetries; attempt++ {
		h, gen, err := run.current(ctx)
		if err != nil {
			return err
		}
		files := h.FileNames(d.opts.DataSaver)
		if idx >= len(files) {
			return fmt.Errorf("page %d missing from node listing of %d pages", idx+1, len(files))
		}

		pageURL := h.PageURL(files[idx], d.opts.DataSaver)
		dest := filepath.Join(targetDir, PageFileName(idx, total, files[idx]))

		report, err := d.fetchToFile(ctx, pageURL, dest)
		if err == nil {
			d.report(ctx, report)
			return nil
		}

		var tErr *mangadex.TransportError
		if !errors.As(err, &tErr) {
			return err
		}
		d.report(ctx, mangadex.PageReport{URL: pageURL, Success: false})
		lastErr = err

		d.log.WithFields(logrus.Fields{
			"chapter": run.chapterID,
			"page":    idx + 1,
			"node":    h.NodeURL,
			"attempt": attempt + 1,
		}).WithError(err).Warn("page fetch failed")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == d.opts.MaxNodeRetries {
			break
		}
		if err := run.reassign(ctx, gen); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: page %d: %w", ErrRetriesExhausted, idx+1, lastErr)
}

// fetchToFile downloads pageURL and writes it to dest. Network and node
// failures come back as *mangadex.TransportError, anything else is local.
func (d *Downloader) fetchToFile(ctx context.Context, pageURL, dest string) (mangadex.PageReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return mangadex.PageReport{}, fmt.Errorf("failed to create page request: %w", err)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return mangadex.PageReport{}, &mangadex.TransportError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return mangadex.PageReport{}, &mangadex.TransportError{URL: pageURL, Err: fmt.Errorf("bad status: %s", resp.Status)}
	}

	// Read image content into memory
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return mangadex.PageReport{}, &mangadex.TransportError{URL: pageURL, Err: err}
	}
	elapsed := time.Since(start)

	if err := afero.WriteFile(d.fs, dest, content, 0644); err != nil {
		return mangadex.PageReport{}, fmt.Errorf("failed to write page %s: %w", dest, err)
	}

	return mangadex.PageReport{
		URL:      pageURL,
		Success:  true,
		Cached:   strings.HasPrefix(resp.Header.Get("X-Cache"), "HIT"),
		Bytes:    len(content),
		Duration: elapsed.Milliseconds(),
	}, nil
}

// report sends node statistics; failures never affect the download.
func (d *Downloader) report(ctx context.Context, r mangadex.PageReport) {
	if err := d.network.Report(ctx, r); err != nil {
		d.log.WithField("url", r.URL).WithError(err).Debug("page report failed")
	}
}

// sendProgress sends a progress update (non-blocking)
func (d *Downloader) sendProgress(progress DownloadProgress) {
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close closes the progress channel. The downloader must not be used afterwards.
func (d *Downloader) Close() {
	d.closeOnce.Do(func() { close(d.progressChan) })
}
