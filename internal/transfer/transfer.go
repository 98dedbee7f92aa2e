// Package transfer implements the transfer actor (spec §4.2): it turns
// EnsureCached requests into bounded-concurrency, deduplicated, retried
// downloads, backed by the disk cache in internal/cache.
package transfer

import (
	"container/heap"
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sorairo/resonance/internal/apperr"
	"github.com/sorairo/resonance/internal/cache"
	"github.com/sorairo/resonance/internal/domain"
)

// Token identifies a waiter on a transfer job. Zero means
// fire-and-forget: the caller wants the side effect (a cached file) but no
// Ready/Error event.
type Token uint64

// EventKind tags the variant of an Event.
type EventKind int

const (
	EventReady EventKind = iota
	EventError
	EventCacheCleared
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventError:
		return "error"
	case EventCacheCleared:
		return "cache_cleared"
	default:
		return "unknown"
	}
}

// Event is emitted on the actor's event channel.
type Event struct {
	Kind    EventKind
	Token   Token
	Key     domain.CacheKey
	Path    string
	Message string
	Files   int
	Bytes   uint64
}

type command interface{ isCommand() }

type cmdEnsureCached struct {
	token    Token
	key      domain.CacheKey
	url      string
	title    string
	priority domain.Priority
}

func (cmdEnsureCached) isCommand() {}

type cmdInvalidate struct{ key domain.CacheKey }

func (cmdInvalidate) isCommand() {}

type cmdClearAll struct{ keep string }

func (cmdClearAll) isCommand() {}

type cmdPurgeNotBr struct {
	bitrate int64
	keep    string
}

func (cmdPurgeNotBr) isCommand() {}

type jobResult struct {
	key     domain.CacheKey
	tmpPath string
	err     error
}

// job tracks one coalesced EnsureCached destination: every concurrent
// requester for the same key shares this record.
type job struct {
	key      domain.CacheKey
	url      string
	title    string
	waiters  []Token
	priority domain.Priority
	inFlight bool
}

// Actor is the transfer actor. It owns the disk cache exclusively and
// serializes every mutation through its Run loop; all other access happens
// via the command methods below, which only enqueue work.
type Actor struct {
	cache  *cache.Cache
	cfg    Config
	client *resty.Client
	nowMs  func() uint64

	cmdCh  chan command
	doneCh chan jobResult
	evtCh  chan Event

	jobs    map[string]*job
	heap    jobHeap
	seq     uint64
	tmpSeq  atomic.Uint64
	permits int

	activeBitrate int64
}

// New opens the disk cache at dir and constructs an idle actor. Call Run to
// start processing commands.
func New(dir string, cfg Config) (*Actor, error) {
	c, err := cache.Open(dir, cfg.CacheMaxBytes)
	if err != nil {
		return nil, apperr.Cache("open audio cache", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		if concurrency < 1 {
			concurrency = 1
		}
	}

	a := &Actor{
		cache:   c,
		cfg:     cfg,
		client:  newHTTPClient(cfg),
		nowMs:   func() uint64 { return uint64(time.Now().UnixMilli()) },
		cmdCh:   make(chan command, 256),
		doneCh:  make(chan jobResult, 256),
		evtCh:   make(chan Event, 256),
		jobs:    make(map[string]*job),
		permits: concurrency,
	}
	return a, nil
}

// Events returns the channel the actor publishes Ready/Error/CacheCleared
// events on.
func (a *Actor) Events() <-chan Event { return a.evtCh }

// EnsureCached requests that key become locally cached. A Ready or Error
// event carrying token follows, unless token is zero.
func (a *Actor) EnsureCached(ctx context.Context, token Token, key domain.CacheKey, url, title string, priority domain.Priority) error {
	return a.send(ctx, cmdEnsureCached{token: token, key: key, url: url, title: title, priority: priority})
}

// Invalidate removes a single cached entry.
func (a *Actor) Invalidate(ctx context.Context, key domain.CacheKey) error {
	return a.send(ctx, cmdInvalidate{key: key})
}

// ClearAll wipes the cache except for the file at keep (if non-empty). It
// emits CacheCleared on completion.
func (a *Actor) ClearAll(ctx context.Context, keep string) error {
	return a.send(ctx, cmdClearAll{keep: keep})
}

// CacheStats reports the disk cache's current entry count and total size,
// for read-only introspection (internal/debugserver). Safe to call from
// any goroutine: it only reaches into cache's own mutex-guarded accessors.
func (a *Actor) CacheStats() (files int, bytes uint64, dir string) {
	keys := a.cache.Keys()
	return len(keys), a.cache.TotalBytes(), a.cache.Dir()
}

// PurgeNotBr keeps only entries at the given bitrate, recording it as the
// actor's active bitrate for the "keep only current bitrate" policy applied
// after future successful downloads.
func (a *Actor) PurgeNotBr(ctx context.Context, bitrate int64, keep string) error {
	return a.send(ctx, cmdPurgeNotBr{bitrate: bitrate, keep: keep})
}

func (a *Actor) send(ctx context.Context, cmd command) error {
	select {
	case a.cmdCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the actor loop until ctx is cancelled. It is meant to be
// started once on a dedicated goroutine.
func (a *Actor) Run(ctx context.Context) {
	slog.Info("transfer actor started", "concurrency", a.permits, "cache_dir", a.cache.Dir())
	defer func() {
		if err := a.cache.Flush(); err != nil {
			slog.Warn("flush audio cache on shutdown", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.cmdCh:
			a.handleCommand(ctx, cmd)
		case res := <-a.doneCh:
			a.handleJobResult(res)
		}
		a.tryStart(ctx)
	}
}

func (a *Actor) handleCommand(ctx context.Context, cmd command) {
	switch c := cmd.(type) {
	case cmdEnsureCached:
		a.handleEnsureCached(c)
	case cmdInvalidate:
		a.cache.Invalidate(c.key)
	case cmdClearAll:
		files, bytes := a.cache.ClearAll(c.keep)
		a.publish(Event{Kind: EventCacheCleared, Files: files, Bytes: bytes})
	case cmdPurgeNotBr:
		a.activeBitrate = c.bitrate
		a.cache.PurgeNotBitrate(c.bitrate, c.keep)
	}
}

func (a *Actor) handleEnsureCached(c cmdEnsureCached) {
	if path, ok := a.cache.Lookup(c.key); ok {
		if c.token != 0 {
			a.publish(Event{Kind: EventReady, Token: c.token, Key: c.key, Path: path})
		}
		return
	}

	keyStr := c.key.String()
	j, exists := a.jobs[keyStr]
	if !exists {
		j = &job{key: c.key}
		a.jobs[keyStr] = j
	}
	j.url = c.url
	j.title = c.title
	if c.priority > j.priority {
		j.priority = c.priority
	}
	j.waiters = append(j.waiters, c.token)

	if !j.inFlight {
		heap.Push(&a.heap, heapItem{priority: j.priority, seq: a.seq, key: keyStr})
		a.seq++
	}
}

func (a *Actor) handleJobResult(res jobResult) {
	keyStr := res.key.String()
	j, ok := a.jobs[keyStr]
	if !ok {
		return
	}
	delete(a.jobs, keyStr)
	a.permits++

	if res.err != nil {
		a.fanOutError(j.waiters, res.err.Error())
		return
	}

	finalPath, err := a.cache.Commit(res.key, res.tmpPath)
	if err != nil {
		a.fanOutError(j.waiters, err.Error())
		return
	}

	a.applyBitratePolicy(res.key)

	for _, tok := range j.waiters {
		if tok == 0 {
			continue
		}
		a.publish(Event{Kind: EventReady, Token: tok, Key: res.key, Path: finalPath})
	}
}

// applyBitratePolicy enforces spec §4.2.4's "keep only current bitrate"
// rule once a download lands.
func (a *Actor) applyBitratePolicy(key domain.CacheKey) {
	switch {
	case a.activeBitrate != 0 && key.Bitrate == a.activeBitrate:
		a.cache.PurgeOtherBitratesOf(key.TrackID, key.Bitrate, "")
	case a.activeBitrate != 0:
		a.cache.PurgeNotBitrate(a.activeBitrate, "")
	default:
		a.cache.PurgeOtherBitratesOf(key.TrackID, key.Bitrate, "")
	}
}

func (a *Actor) fanOutError(waiters []Token, message string) {
	for _, tok := range waiters {
		if tok == 0 {
			continue
		}
		a.publish(Event{Kind: EventError, Token: tok, Message: message})
	}
}

func (a *Actor) publish(evt Event) {
	select {
	case a.evtCh <- evt:
	default:
		slog.Warn("transfer event channel full, dropping event", "kind", evt.Kind)
	}
}

// tryStart spawns as many download tasks as the semaphore allows, skipping
// heap entries that have gone stale (their job's priority has since moved
// on, or the job is already in flight / gone).
func (a *Actor) tryStart(ctx context.Context) {
	for a.permits > 0 {
		keyStr, ok := a.nextRunnableJob()
		if !ok {
			return
		}
		j := a.jobs[keyStr]
		j.inFlight = true
		a.permits--
		a.spawnDownload(ctx, j)
	}
}

func (a *Actor) nextRunnableJob() (string, bool) {
	for a.heap.Len() > 0 {
		item := heap.Pop(&a.heap).(heapItem)
		j, ok := a.jobs[item.key]
		if !ok || j.inFlight || j.priority != item.priority {
			continue
		}
		return item.key, true
	}
	return "", false
}

func (a *Actor) spawnDownload(ctx context.Context, j *job) {
	key := j.key
	url := j.url
	title := j.title
	seq := a.tmpSeq.Add(1)
	dir := a.cache.Dir()
	client := a.client
	cfg := a.cfg
	nowMs := a.nowMs
	done := a.doneCh

	go func() {
		tmpPath, err := downloadWithRetry(ctx, client, cfg, dir, key.TrackID, key.Bitrate, nowMs, seq, url, title)
		select {
		case done <- jobResult{key: key, tmpPath: tmpPath, err: err}:
		case <-ctx.Done():
		}
	}()
}
