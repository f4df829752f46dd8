// Package torrent implements the TorrentClient adapter over an embedded,
// in-process BitTorrent engine instead of shelling out to a daemon: the
// engine lives inside this process and its handle map is empty on every
// start, so this package reports ErrUnknownTorrent for any id it doesn't
// recognize and leaves re-adding the torrent from persisted data to the
// driver (see the TorrentClient doc comment).
package torrent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	anacrolix "github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	tstorage "github.com/anacrolix/torrent/storage"

	"trackrequestd/internal/model"
	"trackrequestd/internal/trackrequest"
)

// Client wraps an anacrolix/torrent engine, assigning each added torrent an
// opaque, process-local model.TorrentId. The engine's own identity for a
// torrent is its info hash; the handle map below is what lets
// GetTorrent/SelectFile/DeleteTorrent round-trip through the int64 the
// TorrentClient contract expects.
type Client struct {
	engine     *anacrolix.Client
	downloadTo string

	mu      sync.RWMutex
	handles map[model.TorrentId]*anacrolix.Torrent
	nextId  int64
}

var _ trackrequest.TorrentClient = (*Client)(nil)

// New starts an embedded torrent engine that downloads into downloadRoot.
func New(downloadRoot string) (*Client, error) {
	cfg := anacrolix.NewDefaultClientConfig()
	cfg.DataDir = downloadRoot
	cfg.DefaultStorage = tstorage.NewFile(downloadRoot)

	engine, err := anacrolix.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("torrent: start engine: %w", err)
	}

	return &Client{
		engine:     engine,
		downloadTo: downloadRoot,
		handles:    make(map[model.TorrentId]*anacrolix.Torrent),
	}, nil
}

// Close shuts down the embedded engine, dropping every active torrent.
func (c *Client) Close() {
	c.engine.Close()
}

// AddTorrent parses the raw .torrent bytes, adds it to the engine with
// every file initially unwanted (DownloadAll is never called here; a file
// only starts transferring once SelectFile names it), and returns its
// handle.
func (c *Client) AddTorrent(ctx context.Context, data []byte) (model.TorrentId, error) {
	var mi metainfo.MetaInfo
	if err := bencode.Unmarshal(data, &mi); err != nil {
		return 0, fmt.Errorf("torrent: parse metainfo: %w", err)
	}

	t, err := c.engine.AddTorrent(&mi)
	if err != nil {
		return 0, fmt.Errorf("torrent: add to engine: %w", err)
	}

	select {
	case <-t.GotInfo():
	case <-ctx.Done():
		t.Drop()
		return 0, ctx.Err()
	}

	for _, f := range t.Files() {
		f.SetPriority(anacrolix.PiecePriorityNone)
	}

	id := model.TorrentId(atomic.AddInt64(&c.nextId, 1))

	c.mu.Lock()
	c.handles[id] = t
	c.mu.Unlock()

	return id, nil
}

// SelectFile marks the file at fileIndex wanted, starting its transfer.
func (c *Client) SelectFile(ctx context.Context, id model.TorrentId, fileIndex int) error {
	t, err := c.lookup(id)
	if err != nil {
		return err
	}

	files := t.Files()
	if fileIndex < 0 || fileIndex >= len(files) {
		return fmt.Errorf("torrent: file index %d out of range (%d files)", fileIndex, len(files))
	}
	files[fileIndex].SetPriority(anacrolix.PiecePriorityNormal)
	return nil
}

// GetTorrent reports the torrent's current file list and completion state.
func (c *Client) GetTorrent(ctx context.Context, id model.TorrentId) (model.TorrentSnapshot, error) {
	t, err := c.lookup(id)
	if err != nil {
		return model.TorrentSnapshot{}, err
	}

	files := t.Files()
	names := make([]string, len(files))
	allComplete := true
	anyWanted := false
	for i, f := range files {
		names[i] = f.DisplayPath()
		if f.Priority() == anacrolix.PiecePriorityNone {
			continue
		}
		anyWanted = true
		if f.BytesCompleted() < f.Length() {
			allComplete = false
		}
	}

	status := model.TorrentDownloading
	if anyWanted && allComplete {
		status = model.TorrentComplete
	}

	return model.TorrentSnapshot{Status: status, Files: names}, nil
}

// DeleteTorrent drops the torrent from the engine. Drop only releases the
// engine's in-memory bookkeeping; it does not touch disk, so withData
// additionally removes the downloaded directory.
func (c *Client) DeleteTorrent(ctx context.Context, id model.TorrentId, withData bool) error {
	t, err := c.lookup(id)
	if err != nil {
		return err
	}

	name := t.Name()
	t.Drop()

	c.mu.Lock()
	delete(c.handles, id)
	c.mu.Unlock()

	if withData && name != "" {
		if err := os.RemoveAll(filepath.Join(c.downloadTo, name)); err != nil {
			return fmt.Errorf("torrent: remove downloaded data: %w", err)
		}
	}
	return nil
}

func (c *Client) lookup(id model.TorrentId) (*anacrolix.Torrent, error) {
	c.mu.RLock()
	t, ok := c.handles[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("torrent: unknown handle %d: %w", id, trackrequest.ErrUnknownTorrent)
	}
	return t, nil
}
