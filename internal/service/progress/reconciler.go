// Package progress hosts the job progress reconciler: the single owner of a
// user's job records and of the progress channel feeding them.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	jobs "github.com/target/drive-notes/internal/domain/progress"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/observability/metrics"
	"github.com/target/drive-notes/internal/observability/statsd"
	"github.com/target/drive-notes/internal/ports"
)

// ErrClosed is returned by operations on an unmounted reconciler.
var ErrClosed = errors.New("reconciler closed")

const (
	defaultStartTimeout     = 30 * time.Second
	defaultRefreshTimeout   = 15 * time.Second
	defaultHistoryTimeout   = 5 * time.Second
	defaultSubscriberBuffer = 64
)

// Credentials are the caller's identity and Drive bearer token.
type Credentials struct {
	UID         string
	AccessToken string
}

// StartRequest identifies the file to summarize.
type StartRequest struct {
	FileID   string
	FolderID string
	Filename string
}

// RefreshFunc re-lists a folder after a job completes.
type RefreshFunc func(ctx context.Context, cred Credentials, folderID string) (*Listing, error)

// Options configure a Reconciler.
type Options struct {
	UserID  string
	Channel ports.ProgressChannel
	Gateway ports.JobStarter

	// Optional collaborators.
	History ports.SummaryHistory
	Refresh RefreshFunc
	Metrics statsd.Sink
	Logger  *slog.Logger

	StartTimeout     time.Duration
	RefreshTimeout   time.Duration
	StallAfter       time.Duration
	SubscriberBuffer int
	Now              func() time.Time
}

// Reconciler owns the job records of one user. All state lives in a single
// goroutine; user intents and channel callbacks are serialized through it.
type Reconciler struct {
	uid     string
	channel ports.ProgressChannel
	gateway ports.JobStarter
	history ports.SummaryHistory
	refresh RefreshFunc
	sink    statsd.Sink
	logger  *slog.Logger
	now     func() time.Time

	startTimeout   time.Duration
	refreshTimeout time.Duration
	stallAfter     time.Duration
	subBuffer      int

	ctx        context.Context
	cancel     context.CancelFunc
	cmds       chan func()
	quit       chan struct{}
	done       chan struct{}
	channelRun chan struct{}
	closeOnce  sync.Once
	background sync.WaitGroup
	refreshes  singleflight.Group

	// Owned by the loop goroutine.
	records  map[string]jobs.JobRecord
	seq      int64
	state    jobs.ChannelState
	subs     map[int]chan Update
	nextSub  int
	cred     Credentials
	expanded string
}

// New mounts a reconciler: it starts the state loop and opens the progress
// channel. Close unmounts it.
func New(opts Options) (*Reconciler, error) {
	if opts.UserID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	if opts.Channel == nil {
		return nil, errors.New("progress channel is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("job gateway is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Reconciler{
		uid:            opts.UserID,
		channel:        opts.Channel,
		gateway:        opts.Gateway,
		history:        opts.History,
		refresh:        opts.Refresh,
		sink:           statsd.WithTags(opts.Metrics, map[string]string{"component": "reconciler"}),
		logger:         logger.With("component", "progress_reconciler", "user_id", opts.UserID),
		now:            now,
		startTimeout:   positiveOr(opts.StartTimeout, defaultStartTimeout),
		refreshTimeout: positiveOr(opts.RefreshTimeout, defaultRefreshTimeout),
		stallAfter:     opts.StallAfter,
		subBuffer:      opts.SubscriberBuffer,
		ctx:            ctx,
		cancel:         cancel,
		cmds:           make(chan func()),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		channelRun:     make(chan struct{}),
		records:        make(map[string]jobs.JobRecord),
		state:          jobs.ChannelConnecting,
		subs:           make(map[int]chan Update),
		cred:           Credentials{UID: opts.UserID},
	}
	if r.subBuffer <= 0 {
		r.subBuffer = defaultSubscriberBuffer
	}
	// Seqs start from the mount time so a remounted reconciler never reuses a
	// seq a client saw from the one before it.
	r.seq = time.Now().UnixMicro()

	go r.loop()
	go r.runChannel()
	return r, nil
}

func positiveOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// UserID returns the owner of the reconciler.
func (r *Reconciler) UserID() string { return r.uid }

// Close closes the channel cleanly, drops all records and ends every
// subscription. Remote jobs keep running.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.channelRun
		close(r.quit)
		<-r.done
		r.background.Wait()
		r.logger.Debug("reconciler unmounted")
	})
}

func (r *Reconciler) loop() {
	defer close(r.done)
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.quit:
			for id, ch := range r.subs {
				close(ch)
				delete(r.subs, id)
			}
			r.records = nil
			return
		}
	}
}

// exec runs fn on the loop goroutine and waits for it to finish.
func (r *Reconciler) exec(fn func()) error {
	finished := make(chan struct{})
	select {
	case r.cmds <- func() { fn(); close(finished) }:
	case <-r.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrClosed
	}
}

func (r *Reconciler) runChannel() {
	defer close(r.channelRun)
	if err := r.channel.Run(r.ctx, channelHandler{r: r}); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("progress channel stopped", "error", err)
	}
}

// RequestProcessing marks the file Requested and submits the job. The record
// is reverted to Idle if the submission fails before any progress event
// arrives. It returns the acknowledgment text shown to the user.
func (r *Reconciler) RequestProcessing(ctx context.Context, req StartRequest, cred Credentials) (string, error) {
	if req.FileID == "" {
		return "", apperrors.ValidationField("file_id", "file id is required")
	}

	var (
		seq      int64
		beginErr error
	)
	if err := r.exec(func() {
		r.remember(cred)
		cur, ok := r.records[req.FileID]
		next, err := jobs.Begin(cur, ok, jobs.StartMeta{
			FileID:   req.FileID,
			FolderID: req.FolderID,
			Filename: req.Filename,
		})
		if err != nil {
			beginErr = err
			return
		}
		seq = r.commit(next)
	}); err != nil {
		return "", err
	}
	if beginErr != nil {
		metrics.EmitJobStart(r.sink, metrics.StartMetric{Result: metrics.ResultNoop})
		return "", apperrors.Wrap(beginErr, apperrors.ErrCodeConflict, "cannot start summarization")
	}

	// The submission outlives the caller: a closed browser tab must not abort it halfway.
	startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.startTimeout)
	defer cancel()

	started := time.Now()
	res, err := r.gateway.StartJob(startCtx, ports.StartJobRequest{
		UID:         cred.UID,
		FolderID:    req.FolderID,
		Filename:    req.Filename,
		FileID:      req.FileID,
		AccessToken: cred.AccessToken,
	})
	elapsed := time.Since(started)
	name := jobs.JobRecord{FileID: req.FileID, Filename: req.Filename}.DisplayName()

	if err != nil {
		metrics.EmitJobStart(r.sink, metrics.StartMetric{Result: metrics.ResultError, Duration: elapsed, Err: err})
		r.logger.WarnContext(ctx, "job submission failed", "file_id", req.FileID, "error", err)
		_ = r.exec(func() {
			if cur, ok := r.records[req.FileID]; ok {
				if reverted, ok := jobs.Revert(cur, seq); ok {
					r.commit(reverted)
				}
			}
			r.notify(NoticeError, req.FileID, fmt.Sprintf("Failed to start summarization for %s", name))
		})
		return "", apperrors.Upstream(err, "start summarization")
	}

	metrics.EmitJobStart(r.sink, metrics.StartMetric{Result: metrics.ResultSuccess, Duration: elapsed})
	msg := res.Message
	if msg == "" {
		msg = "Summarization started: " + name
	}
	_ = r.exec(func() { r.notify(NoticeInfo, req.FileID, msg) })
	return msg, nil
}

// OnChannelEvent folds a parsed progress event into the records.
func (r *Reconciler) OnChannelEvent(ev jobs.Event) error {
	return r.exec(func() { r.apply(ev) })
}

// SetExpandedFolder records the folder the user is looking at. Completions of
// jobs started elsewhere refresh this folder.
func (r *Reconciler) SetExpandedFolder(folderID string, cred Credentials) error {
	return r.exec(func() {
		r.remember(cred)
		r.expanded = folderID
	})
}

// UpdateCredentials replaces the stored bearer token used for listing refreshes.
func (r *Reconciler) UpdateCredentials(cred Credentials) error {
	return r.exec(func() { r.remember(cred) })
}

// Get returns the record for fileID.
func (r *Reconciler) Get(fileID string) (jobs.JobRecord, bool, error) {
	var (
		rec jobs.JobRecord
		ok  bool
	)
	err := r.exec(func() { rec, ok = r.records[fileID] })
	return rec, ok, err
}

// ChannelState returns the progress channel state.
func (r *Reconciler) ChannelState() (jobs.ChannelState, error) {
	var st jobs.ChannelState
	err := r.exec(func() { st = r.state })
	return st, err
}

// Snapshot returns all records.
func (r *Reconciler) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := r.exec(func() { snap = r.snapshot(0) })
	return snap, err
}

// Subscribe returns the records changed after sinceSeq together with a feed of
// later updates. Pass zero for a full snapshot.
func (r *Reconciler) Subscribe(sinceSeq int64) (*Subscription, error) {
	var sub *Subscription
	err := r.exec(func() {
		id := r.nextSub
		r.nextSub++
		ch := make(chan Update, r.subBuffer)
		r.subs[id] = ch
		metrics.EmitSubscribers(r.sink, len(r.subs))

		var once sync.Once
		sub = &Subscription{
			Snapshot: r.snapshot(sinceSeq),
			Updates:  ch,
			cancel: func() {
				once.Do(func() {
					_ = r.exec(func() { r.dropSubscriber(id) })
				})
			},
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Reconciler) snapshot(sinceSeq int64) Snapshot {
	if sinceSeq > r.seq {
		// Seen on another reconciler; nothing here can be trusted as delivered.
		sinceSeq = 0
	}
	now := r.now()
	snap := Snapshot{Seq: r.seq, Channel: r.state, Records: make([]jobs.JobRecord, 0, len(r.records))}
	for _, rec := range r.records {
		if rec.Stalled(now, r.stallAfter) {
			snap.Stalled = append(snap.Stalled, rec.FileID)
		}
		if rec.Seq > sinceSeq {
			snap.Records = append(snap.Records, rec)
		}
	}
	sortRecords(snap.Records)
	sort.Strings(snap.Stalled)
	return snap
}

func (r *Reconciler) remember(cred Credentials) {
	if cred.AccessToken != "" {
		r.cred.AccessToken = cred.AccessToken
	}
	if cred.UID != "" {
		r.cred.UID = cred.UID
	}
}

func (r *Reconciler) apply(ev jobs.Event) {
	cur, ok := r.records[ev.FileID]
	next, outcome := jobs.Apply(cur, ok, ev)
	metrics.EmitProgressEvent(r.sink, metrics.EventMetric{Outcome: outcome.String(), Phase: string(next.Phase)})

	switch outcome {
	case jobs.OutcomeApplied:
		r.commit(next)
		if rec := r.records[next.FileID]; rec.Phase.Terminal() {
			r.finished(rec)
		}
	case jobs.OutcomeMalformed:
		r.logger.Warn("dropping malformed progress event", "file_id", ev.FileID, "progress", ev.Progress)
	case jobs.OutcomeDuplicate, jobs.OutcomeStale:
		r.logger.Debug("ignoring progress event", "file_id", ev.FileID, "progress", ev.Progress, "outcome", outcome.String())
	}
}

// commit stores rec under a new seq and publishes it.
func (r *Reconciler) commit(rec jobs.JobRecord) int64 {
	r.seq++
	rec.Seq = r.seq
	rec.UpdatedAt = r.now()
	r.records[rec.FileID] = rec
	r.broadcast(Update{Seq: r.seq, Kind: UpdateRecord, Record: &rec})
	return r.seq
}

func (r *Reconciler) publish(u Update) {
	r.seq++
	u.Seq = r.seq
	r.broadcast(u)
}

func (r *Reconciler) notify(level NoticeLevel, fileID, text string) {
	r.publish(Update{Kind: UpdateNotice, Notice: &Notice{Level: level, FileID: fileID, Text: text}})
}

func (r *Reconciler) broadcast(u Update) {
	for id, ch := range r.subs {
		select {
		case ch <- u:
		default:
			r.logger.Warn("dropping lagging subscriber", "subscriber", id, "seq", u.Seq)
			r.dropSubscriber(id)
		}
	}
}

func (r *Reconciler) dropSubscriber(id int) {
	ch, ok := r.subs[id]
	if !ok {
		return
	}
	delete(r.subs, id)
	close(ch)
	metrics.EmitSubscribers(r.sink, len(r.subs))
}

// finished handles a record that just became terminal.
func (r *Reconciler) finished(rec jobs.JobRecord) {
	level := NoticeInfo
	if rec.Phase == jobs.PhaseFailed {
		level = NoticeError
	}
	r.notify(level, rec.FileID, rec.StatusMessage())

	if r.history != nil {
		if summary, ok := jobs.SummaryFromRecord(r.uid, rec); ok {
			r.background.Add(1)
			go r.saveSummary(summary)
		}
	}

	if rec.Phase != jobs.PhaseCompleted || r.refresh == nil {
		return
	}
	folderID := rec.FolderID
	if folderID == "" {
		folderID = r.expanded
	}
	if folderID == "" {
		return
	}
	r.background.Add(1)
	go r.refreshListing(folderID, r.cred)
}

func (r *Reconciler) saveSummary(s jobs.Summary) {
	defer r.background.Done()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), defaultHistoryTimeout)
	defer cancel()
	if err := r.history.Record(ctx, s); err != nil {
		r.logger.Warn("failed to record summary outcome", "file_id", s.FileID, "error", err)
	}
}

func (r *Reconciler) refreshListing(folderID string, cred Credentials) {
	defer r.background.Done()
	ctx, cancel := context.WithTimeout(r.ctx, r.refreshTimeout)
	defer cancel()

	v, err, _ := r.refreshes.Do(folderID, func() (any, error) {
		return r.refresh(ctx, cred, folderID)
	})
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Warn("listing refresh failed", "folder_id", folderID, "error", err)
		}
		return
	}
	listing, ok := v.(*Listing)
	if !ok || listing == nil {
		return
	}
	_ = r.exec(func() { r.publish(Update{Kind: UpdateListing, Listing: listing}) })
}

func (r *Reconciler) setChannel(state jobs.ChannelState) {
	if r.state == state {
		return
	}
	r.state = state
	r.publish(Update{Kind: UpdateChannel, Channel: state})
}

// channelHandler adapts channel callbacks onto the loop.
type channelHandler struct {
	r *Reconciler
}

var _ ports.ChannelHandler = channelHandler{}

func (h channelHandler) OnConnecting(attempt int) {
	_ = h.r.exec(func() { h.r.setChannel(jobs.ChannelConnecting) })
	metrics.EmitChannelState(h.r.sink, string(jobs.ChannelConnecting), attempt > 1)
}

func (h channelHandler) OnOpen() {
	_ = h.r.exec(func() { h.r.setChannel(jobs.ChannelOpen) })
	metrics.EmitChannelState(h.r.sink, string(jobs.ChannelOpen), false)
	h.r.logger.Info("progress channel open")
}

func (h channelHandler) OnMessage(data []byte) {
	ev, err := jobs.ParseEvent(data)
	switch {
	case errors.Is(err, jobs.ErrKeepalive):
		return
	case err != nil:
		h.r.logger.Warn("dropping malformed progress payload", "error", err, "bytes", len(data))
		metrics.EmitProgressEvent(h.r.sink, metrics.EventMetric{Outcome: jobs.OutcomeMalformed.String()})
		return
	}
	_ = h.r.OnChannelEvent(ev)
}

func (h channelHandler) OnError(err error) {
	h.r.logger.Warn("progress channel error", "error", err)
	metrics.EmitChannelError(h.r.sink, err)
}

func (h channelHandler) OnClose(code int, reconnectIn time.Duration) {
	_ = h.r.exec(func() {
		h.r.setChannel(jobs.ChannelClosed)
		if reconnectIn > 0 {
			h.r.notify(NoticeWarning, "", fmt.Sprintf("Progress updates disconnected, reconnecting in %s", reconnectIn.Round(time.Second)))
		}
	})
	metrics.EmitChannelState(h.r.sink, string(jobs.ChannelClosed), false)
	h.r.logger.Info("progress channel closed", "code", code, "reconnect_in", reconnectIn)
}
