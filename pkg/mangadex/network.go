package mangadex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HandoffValidity is how long an at-home node assignment may be used.
const HandoffValidity = 900 * time.Second

// Handoff binds a chapter to an at-home node for a limited time.
type Handoff struct {
	ChapterID string
	NodeURL   string
	Hash      string
	// Files and FilesDataSaver are the page file names in reading order.
	Files          []string
	FilesDataSaver []string
	IssuedAt       time.Time
}

// Expired reports whether the handoff may no longer be used at now.
func (h *Handoff) Expired(now time.Time) bool {
	return now.Sub(h.IssuedAt) > HandoffValidity
}

// ValidUntil is the instant after which the handoff is expired.
func (h *Handoff) ValidUntil() time.Time {
	return h.IssuedAt.Add(HandoffValidity)
}

// FileNames returns the page names for the requested quality.
func (h *Handoff) FileNames(dataSaver bool) []string {
	if dataSaver {
		return h.FilesDataSaver
	}
	return h.Files
}

// PageURL builds the node URL of one page file.
func (h *Handoff) PageURL(file string, dataSaver bool) string {
	quality := "data"
	if dataSaver {
		quality = "data-saver"
	}
	return fmt.Sprintf("%s/%s/%s/%s", h.NodeURL, quality, h.Hash, file)
}

// PageURLs returns every page URL in reading order.
func (h *Handoff) PageURLs(dataSaver bool) []string {
	files := h.FileNames(dataSaver)
	urls := make([]string, len(files))
	for i, f := range files {
		urls[i] = h.PageURL(f, dataSaver)
	}
	return urls
}

// ReadChapter requests an at-home node for a chapter. forcePort443 asks for a
// node reachable on the standard HTTPS port.
func (c *Client) ReadChapter(ctx context.Context, chapterID string, forcePort443 bool) (*Handoff, error) {
	query := url.Values{"forcePort443": {strconv.FormatBool(forcePort443)}}
	resp, err := c.send(ctx, http.MethodGet, "/at-home/server/"+url.PathEscape(chapterID), query, nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, newAPIError(resp.Response, resp.body, ErrNoContent)
	default:
		return nil, newAPIError(resp.Response, resp.body, nil)
	}

	var doc struct {
		BaseURL string `json:"baseUrl"`
		Chapter struct {
			Hash      string   `json:"hash"`
			Data      []string `json:"data"`
			DataSaver []string `json:"dataSaver"`
		} `json:"chapter"`
	}
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}

	h := &Handoff{
		ChapterID:      chapterID,
		NodeURL:        doc.BaseURL,
		Hash:           doc.Chapter.Hash,
		Files:          doc.Chapter.Data,
		FilesDataSaver: doc.Chapter.DataSaver,
		IssuedAt:       c.now(),
	}
	c.log.WithField("chapter", chapterID).WithField("node", h.NodeURL).Debug("at-home node assigned")
	return h, nil
}

// PageReport describes one page fetch from an at-home node.
type PageReport struct {
	URL      string `json:"url"`
	Success  bool   `json:"success"`
	Cached   bool   `json:"cached"`
	Bytes    int    `json:"bytes"`
	Duration int64  `json:"duration"` // milliseconds
}

// Report sends page statistics to the at-home network backend.
func (c *Client) Report(ctx context.Context, r PageReport) error {
	resp, err := c.send(ctx, http.MethodPost, c.networkURL+"/report", nil, r)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp.Response, resp.body, nil)
	}
	return nil
}
