package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
	"github.com/johnquangdev/meeting-ingest/internal/domain/repositories"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/external/wemeet"
	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

// Lister pages through finished cloud recordings for a time window.
type Lister interface {
	ListRecords(ctx context.Context, startTime, endTime int64, page, pageSize int) (*wemeet.RecordsPage, error)
}

// Resolver fetches playable/downloadable addresses for one recording.
type Resolver interface {
	ResolveAddresses(ctx context.Context, meetingRecordID string) (*wemeet.RecordAddresses, error)
}

// Acquirer downloads a recording and converts it to a transcription-ready
// WAV file. The returned cleanup releases all temporary files.
type Acquirer interface {
	Acquire(ctx context.Context, downloadURL, recordID string) (string, func(), error)
}

// Transcriber turns an audio file into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer produces a summary and a category from a transcript.
type Summarizer interface {
	Classify(ctx context.Context, transcript string) (string, entities.Category, error)
}

// AudioArchive stores the converted audio for later retrieval. Optional.
type AudioArchive interface {
	StoreAudio(ctx context.Context, recordID, audioPath string) (string, error)
}

// RunLock guards against overlapping scheduled runs. Optional.
type RunLock interface {
	AcquireRunLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, key string) error
}

// RunReport summarizes one batch run.
type RunReport struct {
	Pages        int
	Listed       int
	Skipped      int
	Succeeded    int
	Failed       int
	NotAttempted int
}

// retryPolicy bounds the backoff used for listing, address resolution and
// transcription. Overridable in tests.
type retryPolicy struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsed      time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		initialInterval: 2 * time.Second,
		maxInterval:     15 * time.Second,
		maxElapsed:      90 * time.Second,
	}
}

// Service drives the full pipeline: list, resolve, acquire, transcribe,
// classify, persist. Recordings within a page are processed concurrently by
// a bounded worker pool; pages are fetched sequentially.
type Service struct {
	lister      Lister
	resolver    Resolver
	acquirer    Acquirer
	transcriber Transcriber
	summarizer  Summarizer
	recordings  repositories.RecordingRepository
	processLog  repositories.ProcessLogRepository
	archive     AudioArchive
	runLock     RunLock
	cfg         config.PipelineConfig
	loc         *time.Location
	retry       retryPolicy
	logger      *zap.Logger
}

// NewService wires the pipeline. archive and runLock may be nil.
func NewService(
	lister Lister,
	resolver Resolver,
	acquirer Acquirer,
	transcriber Transcriber,
	summarizer Summarizer,
	recordings repositories.RecordingRepository,
	processLog repositories.ProcessLogRepository,
	archive AudioArchive,
	runLock RunLock,
	cfg config.PipelineConfig,
	loc *time.Location,
	logger *zap.Logger,
) *Service {
	return &Service{
		lister:      lister,
		resolver:    resolver,
		acquirer:    acquirer,
		transcriber: transcriber,
		summarizer:  summarizer,
		recordings:  recordings,
		processLog:  processLog,
		archive:     archive,
		runLock:     runLock,
		cfg:         cfg,
		loc:         loc,
		retry:       defaultRetryPolicy(),
		logger:      logger,
	}
}

const dailyLockKey = "meeting-ingest:daily-run"

// RunIncremental processes the previous full local day. When a run lock is
// configured and already held, the run is skipped without error.
func (s *Service) RunIncremental(ctx context.Context) (*RunReport, error) {
	start, end := IncrementalWindow(time.Now(), s.loc)

	if s.runLock != nil {
		ok, err := s.runLock.AcquireRunLock(ctx, dailyLockKey, time.Hour)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn("daily run already in progress, skipping")
			return &RunReport{}, nil
		}
		defer func() {
			if err := s.runLock.ReleaseRunLock(context.Background(), dailyLockKey); err != nil {
				s.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	s.logger.Info("starting incremental run",
		zap.Time("window_start", start),
		zap.Time("window_end", end))
	return s.Run(ctx, start.Unix(), end.Unix())
}

// Run processes every recording the listing yields for [startTime, endTime).
// A listing failure after retries aborts the run; results for recordings
// processed before the failure remain persisted. Per-recording stage
// failures are isolated. A persistence failure aborts the run.
func (s *Service) Run(ctx context.Context, startTime, endTime int64) (*RunReport, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &RunReport{}
	state := &runState{cancel: cancel}

	for page := 1; ; page++ {
		pageData, err := s.listPage(runCtx, startTime, endTime, page)
		if err != nil {
			s.logger.Error("listing failed, aborting run",
				zap.Int("page", page), zap.Error(err))
			return report, err
		}

		report.Pages++
		report.Listed += len(pageData.Records)
		s.logger.Info("fetched listing page",
			zap.Int("page", page),
			zap.Int("total_pages", pageData.TotalPages),
			zap.Int("records", len(pageData.Records)))

		// An empty page ends the run even below TotalPages: the dataset can
		// shrink between fetches and later pages would be empty too.
		if len(pageData.Records) == 0 {
			break
		}

		s.processPage(runCtx, pageData.Records, report, state)

		if err := state.fatal(); err != nil {
			return report, err
		}
		if runCtx.Err() != nil {
			s.logger.Warn("run cancelled",
				zap.Int("succeeded", report.Succeeded),
				zap.Int("not_attempted", report.NotAttempted))
			return report, runCtx.Err()
		}
		if pageData.TotalPages == 0 || page >= pageData.TotalPages {
			break
		}
	}

	s.logger.Info("run finished",
		zap.Int("listed", report.Listed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// runState carries cross-goroutine outcome accounting for one run.
type runState struct {
	mu       sync.Mutex
	fatalErr error
	cancel   context.CancelFunc
}

func (st *runState) setFatal(err error) {
	st.mu.Lock()
	if st.fatalErr == nil {
		st.fatalErr = err
	}
	st.mu.Unlock()
	st.cancel()
}

func (st *runState) fatal() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.fatalErr
}

func (s *Service) listPage(ctx context.Context, startTime, endTime int64, page int) (*wemeet.RecordsPage, error) {
	var pageData *wemeet.RecordsPage
	operation := func() error {
		p, err := s.lister.ListRecords(ctx, startTime, endTime, page, s.cfg.PageSize)
		if err != nil {
			if !apperrors.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			s.logger.Warn("listing attempt failed, retrying",
				zap.Int("page", page), zap.Error(err))
			return err
		}
		pageData = p
		return nil
	}
	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return pageData, nil
}

func (s *Service) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.initialInterval
	bo.MaxInterval = s.retry.maxInterval
	bo.MaxElapsedTime = s.retry.maxElapsed
	return backoff.WithContext(bo, ctx)
}

// processPage fans records out to at most cfg.Workers concurrent workers and
// waits for the page to drain. Records not started before cancellation are
// counted as not attempted.
func (s *Service) processPage(ctx context.Context, records []wemeet.MeetingRecord, report *RunReport, state *runState) {
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range records {
		rec := records[i]
		// Checked before the select: with a free worker slot the select
		// would pick between the semaphore and Done at random, letting a
		// cancelled run start new recordings.
		if ctx.Err() != nil {
			mu.Lock()
			report.NotAttempted++
			mu.Unlock()
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			report.NotAttempted++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			skipped, err := s.processRecord(ctx, rec)
			mu.Lock()
			switch {
			case skipped:
				report.Skipped++
			case err == nil:
				report.Succeeded++
			default:
				report.Failed++
			}
			mu.Unlock()

			if err != nil && apperrors.CodeOf(err) == apperrors.ErrorCode_PERSISTENCE {
				state.setFatal(err)
			}
		}()
	}
	wg.Wait()
}

// processRecord takes one recording through the full stage sequence and
// records the terminal state plus a process log entry. The returned error is
// the stage failure, if any; skipped reports the already-completed shortcut.
func (s *Service) processRecord(ctx context.Context, rec wemeet.MeetingRecord) (skipped bool, err error) {
	started := time.Now()
	recordID := rec.MeetingRecordID
	log := s.logger.With(zap.String("record_id", recordID))

	if s.cfg.SkipCompleted {
		exists, lerr := s.recordings.RecordExists(ctx, recordID)
		if lerr != nil {
			// Still one log entry per attempt, same as a stage failure.
			entry := entities.NewProcessLogEntry(recordID, lerr, time.Since(started))
			if aerr := s.processLog.Append(ctx, entry); aerr != nil {
				return false, aerr
			}
			return false, lerr
		}
		if exists {
			log.Debug("recording already completed, skipping")
			return true, nil
		}
	}

	recording := &entities.Recording{
		ID:             recordID,
		MeetingID:      rec.MeetingID,
		StartTime:      time.Unix(rec.StartTime, 0).UTC(),
		EndTime:        time.Unix(rec.EndTime, 0).UTC(),
		ParticipantIDs: rec.AttendeeIDs(),
		Category:       entities.CategoryOther,
		Status:         entities.RecordingStatusPending,
	}

	stageErr := s.runStages(ctx, recording, log)
	took := time.Since(started)

	if stageErr != nil {
		log.Error("recording failed", zap.Error(stageErr),
			zap.Duration("took", took))
		if apperrors.CodeOf(stageErr) != apperrors.ErrorCode_PERSISTENCE {
			recording.MarkAsFailed()
			if uerr := s.recordings.Upsert(ctx, recording); uerr != nil {
				return false, uerr
			}
		}
	} else {
		log.Info("recording processed",
			zap.String("category", string(recording.Category)),
			zap.Duration("took", took))
	}

	entry := entities.NewProcessLogEntry(recordID, stageErr, took)
	if aerr := s.processLog.Append(ctx, entry); aerr != nil {
		return false, aerr
	}
	return false, stageErr
}

// runStages mutates recording through resolve, acquire, transcribe and
// classify, then persists the completed result.
func (s *Service) runStages(ctx context.Context, recording *entities.Recording, log *zap.Logger) error {
	addrs, err := s.resolveWithRetry(ctx, recording.ID)
	if err != nil {
		return err
	}
	file := addrs.RecordFiles[0]
	recording.PlayURL = file.PlayURL
	recording.DownloadURL = file.DownloadURL

	wavPath, cleanup, err := s.acquirer.Acquire(ctx, recording.DownloadURL, recording.ID)
	if err != nil {
		return err
	}
	defer cleanup()

	transcript, err := s.transcribeWithRetry(ctx, wavPath)
	if err != nil {
		return err
	}
	recording.Transcript = transcript

	summary, category, err := s.summarizer.Classify(ctx, transcript)
	if err != nil {
		return err
	}
	recording.Summary = summary
	recording.Category = category

	if s.archive != nil {
		if _, aerr := s.archive.StoreAudio(ctx, recording.ID, wavPath); aerr != nil {
			log.Warn("audio archive failed", zap.Error(aerr))
		}
	}

	recording.MarkAsCompleted()
	return s.recordings.Upsert(ctx, recording)
}

// resolveWithRetry polls addresses until the recording is ready or the
// backoff gives up. Not-ready and transient responses both retry.
func (s *Service) resolveWithRetry(ctx context.Context, recordID string) (*wemeet.RecordAddresses, error) {
	var addrs *wemeet.RecordAddresses
	operation := func() error {
		a, err := s.resolver.ResolveAddresses(ctx, recordID)
		if err != nil {
			if apperrors.IsNotReady(err) || apperrors.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		addrs = a
		return nil
	}
	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (s *Service) transcribeWithRetry(ctx context.Context, audioPath string) (string, error) {
	var transcript string
	operation := func() error {
		t, err := s.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			if !apperrors.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		transcript = t
		return nil
	}
	if err := backoff.Retry(operation, s.newBackOff(ctx)); err != nil {
		return "", err
	}
	return transcript, nil
}
