package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/carpenters/internal/logging"
	"github.com/JonMunkholm/carpenters/internal/metrics"
	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
	"github.com/JonMunkholm/carpenters/internal/vocabulary"
)

// ErrExportNotFound is returned for unknown or expired export ids.
var ErrExportNotFound = errors.New("export not found")

// DefaultExportTimeout bounds a single export run.
const DefaultExportTimeout = 2 * time.Hour

// resultRetention is how long a finished export stays queryable.
const resultRetention = 10 * time.Minute

// Minter mints persistent identifiers. purpose is PurposePreservation for
// the preservation ARK and PurposeAccess for the display ARK.
type Minter interface {
	MintArk(ctx context.Context, obj model.Object, purpose model.Purpose) (string, error)
}

// ArchivalSource looks up the archival children of a finding-aid resource.
type ArchivalSource interface {
	Children(ctx context.Context, resourceURI string) ([]model.ArchivalChild, error)
}

// ServiceConfig holds export settings.
type ServiceConfig struct {
	Username      string
	LineEnding    string
	ExportTimeout time.Duration
	HTTPClient    *http.Client // used to fetch the MAP and vocabulary
}

// Service ties together the store, the MAP, the vocabulary ranges, the
// operation guard and the export history.
type Service struct {
	store   *Store
	guard   *OperationGuard
	history HistoryStore
	cfg     ServiceConfig

	schemaMu sync.RWMutex
	fields   schema.Map
	graph    *vocabulary.Graph
	ranges   vocabulary.Ranges

	mu      sync.RWMutex
	exports map[string]*activeExport
}

type activeExport struct {
	ID          string
	Exporter    string
	Destination string
	Cancel      context.CancelFunc
	Progress    Progress
	Outcome     *ExportOutcome
	Done        chan struct{}
	Listeners   []chan Progress
	ListenerMu  sync.Mutex
}

// ExportOutcome is the final state of an asynchronous export.
type ExportOutcome struct {
	ID      string        `json:"id"`
	Summary ExportSummary `json:"summary"`
	Error   string        `json:"error,omitempty"`
	Message UserMessage   `json:"message,omitempty"`
}

// NewService creates a Service. A nil history keeps entries in memory.
func NewService(store *Store, history HistoryStore, cfg ServiceConfig) *Service {
	if store == nil {
		store = NewStore()
	}
	if history == nil {
		history = NewMemoryHistory(0)
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = DefaultExportTimeout
	}
	if cfg.LineEnding == "" {
		cfg.LineEnding = PlatformLineEnding()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		store:   store,
		guard:   NewOperationGuard(),
		history: history,
		cfg:     cfg,
		exports: make(map[string]*activeExport),
	}
}

// Store returns the project store.
func (s *Service) Store() *Store { return s.store }

// Guard returns the operation guard.
func (s *Service) Guard() *OperationGuard { return s.guard }

// isURL reports whether source should be fetched rather than read from disk.
func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadSchema loads the MAP from a URL or file and rebuilds the ranges.
func (s *Service) LoadSchema(ctx context.Context, source string) error {
	var (
		m   schema.Map
		err error
	)
	if isURL(source) {
		m, err = schema.Fetch(ctx, s.cfg.HTTPClient, source)
	} else {
		m, err = schema.LoadFile(source)
	}
	if err != nil {
		return err
	}
	s.SetSchema(m)
	logging.FromContext(ctx).Info("map loaded", "source", source, "fields", len(m))
	return nil
}

// SetSchema installs a MAP and rebuilds the ranges.
func (s *Service) SetSchema(m schema.Map) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	s.fields = m
	s.ranges = vocabulary.BuildRange(m, s.graph)
}

// LoadVocabulary loads the vocabulary from a URL or file and rebuilds the
// ranges.
func (s *Service) LoadVocabulary(ctx context.Context, source string) error {
	var (
		nodes []vocabulary.Node
		err   error
	)
	if isURL(source) {
		nodes, err = vocabulary.Fetch(ctx, s.cfg.HTTPClient, source)
	} else {
		nodes, err = vocabulary.LoadFile(source)
	}
	if err != nil {
		return err
	}
	s.SetVocabulary(nodes)
	logging.FromContext(ctx).Info("vocabulary loaded", "source", source, "nodes", len(nodes))
	return nil
}

// SetVocabulary installs vocabulary nodes and rebuilds the ranges.
func (s *Service) SetVocabulary(nodes []vocabulary.Node) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	s.graph = vocabulary.NewGraph(nodes)
	s.ranges = vocabulary.BuildRange(s.fields, s.graph)
}

// Schema returns the loaded MAP and ranges. The MAP is nil until loaded.
func (s *Service) Schema() (schema.Map, vocabulary.Ranges) {
	s.schemaMu.RLock()
	defer s.schemaMu.RUnlock()
	return s.fields, s.ranges
}

// ObjectValidation is the validation result of one object.
type ObjectValidation struct {
	UUID  string `json:"uuid"`
	Title string `json:"title"`
	ValidationResult
}

// ValidateProject validates every object of the open project.
func (s *Service) ValidateProject() ([]ObjectValidation, error) {
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, ErrNoProject
	}
	m, ranges := s.Schema()

	results := make([]ObjectValidation, len(snap.Project.Objects))
	invalid := 0
	for i, obj := range snap.Project.Objects {
		results[i] = ObjectValidation{
			UUID:             obj.UUID,
			Title:            obj.Title,
			ValidationResult: ValidateObject(obj, m, ranges),
		}
		if !results[i].Valid {
			invalid++
		}
	}
	metrics.InvalidObjects.Set(float64(invalid))
	return results, nil
}

// ExportOptions overrides service defaults for one run.
type ExportOptions struct {
	Username   string
	LineEnding string
	Progress   ProgressFunc
}

// prepared is a fully checked export waiting to run. The guard is held.
type prepared struct {
	def  ExporterDefinition
	req  ExportRequest
	snap Snapshot
}

// prepare performs every precondition check and acquires the guard.
func (s *Service) prepare(kind, dest string, opts ExportOptions) (*prepared, error) {
	def, ok := GetExporter(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, kind)
	}
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, ErrNoProject
	}
	m, ranges := s.Schema()
	if def.NeedsMap && m == nil {
		return nil, ErrNoMap
	}
	if dest == "" {
		return nil, fmt.Errorf("%s export: no destination given", def.Label)
	}
	if err := s.guard.TryAcquire("export:" + kind); err != nil {
		return nil, err
	}

	username := opts.Username
	if username == "" {
		username = s.cfg.Username
	}
	lineEnding := opts.LineEnding
	if lineEnding == "" {
		lineEnding = s.cfg.LineEnding
	}

	return &prepared{
		def:  def,
		snap: snap,
		req: ExportRequest{
			Objects:     snap.Project.Objects,
			Map:         m,
			Ranges:      ranges,
			Project:     ProjectInfoFrom(snap.Project),
			Destination: dest,
			BasePath:    snap.BasePath(),
			ProjectFile: snap.ProjectFile(),
			Username:    username,
			LineEnding:  lineEnding,
			Progress:    opts.Progress,
		},
	}, nil
}

// run executes a prepared export, releases the guard and records the
// outcome.
func (s *Service) run(ctx context.Context, id string, p *prepared) (ExportSummary, error) {
	defer s.guard.Release()

	ctx, cancel := context.WithTimeout(logging.WithExportID(ctx, id), s.cfg.ExportTimeout)
	defer cancel()

	start := time.Now()
	summary, err := runExporter(ctx, p.def, p.req)
	elapsed := time.Since(start)

	info := RequestInfoFrom(ctx)
	entry := HistoryEntry{
		ID:          id,
		Exporter:    p.def.Key,
		Label:       p.def.Label,
		Status:      StatusSucceeded,
		Destination: p.req.Destination,
		ProjectPath: p.snap.Path,
		Objects:     summary.Objects,
		Files:       summary.Files,
		Requester:   info.Requester,
		UserAgent:   info.UserAgent,
		StartedAt:   start,
		Duration:    elapsed,
	}
	if err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
	}
	metrics.RecordExport(p.def.Key, string(entry.Status), elapsed, summary.Objects, summary.Files)

	// The run's context may already be done; history is still written.
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancelRecord()
	if herr := s.history.Record(recordCtx, entry); herr != nil {
		logging.FromContext(ctx).Warn("failed to record export history", "error", herr)
	}

	return summary, err
}

// Export runs an exporter synchronously.
func (s *Service) Export(ctx context.Context, kind, dest string, opts ExportOptions) (ExportSummary, error) {
	p, err := s.prepare(kind, dest, opts)
	if err != nil {
		return ExportSummary{}, err
	}
	return s.run(ctx, uuid.NewString(), p)
}

// StartExport checks preconditions, then runs the export in the background.
// Progress is available through SubscribeProgress and the outcome through
// ExportResult. ctx only carries values; the run is not tied to its
// cancellation.
func (s *Service) StartExport(ctx context.Context, kind, dest string, opts ExportOptions) (string, error) {
	id := uuid.NewString()
	exp := &activeExport{
		ID:          id,
		Exporter:    kind,
		Destination: dest,
		Progress:    Progress{Description: "Preparing export"},
		Done:        make(chan struct{}),
	}

	userProgress := opts.Progress
	opts.Progress = func(p Progress) {
		exp.ListenerMu.Lock()
		exp.Progress = p
		exp.ListenerMu.Unlock()
		exp.notifyProgress()
		if userProgress != nil {
			userProgress(p)
		}
	}

	p, err := s.prepare(kind, dest, opts)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	exp.Cancel = cancel

	s.mu.Lock()
	s.exports[id] = exp
	s.mu.Unlock()

	go func() {
		defer cancel()
		summary, err := s.run(runCtx, id, p)

		outcome := &ExportOutcome{ID: id, Summary: summary}
		if err != nil {
			outcome.Error = err.Error()
			outcome.Message = MapError(err)
		}

		exp.ListenerMu.Lock()
		exp.Outcome = outcome
		exp.ListenerMu.Unlock()

		close(exp.Done)
		exp.closeListeners()
		s.cleanup(id, resultRetention)
	}()

	return id, nil
}

func (s *Service) lookup(id string) (*activeExport, error) {
	s.mu.RLock()
	exp, ok := s.exports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, id)
	}
	return exp, nil
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the export completes.
func (s *Service) SubscribeProgress(id string) (<-chan Progress, error) {
	exp, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan Progress, 16)

	exp.ListenerMu.Lock()
	defer exp.ListenerMu.Unlock()

	select {
	case <-exp.Done:
		ch <- exp.Progress
		close(ch)
		return ch, nil
	default:
	}

	exp.Listeners = append(exp.Listeners, ch)
	ch <- exp.Progress
	return ch, nil
}

// CurrentProgress returns the latest progress without blocking.
func (s *Service) CurrentProgress(id string) (Progress, error) {
	exp, err := s.lookup(id)
	if err != nil {
		return Progress{}, err
	}
	exp.ListenerMu.Lock()
	defer exp.ListenerMu.Unlock()
	return exp.Progress, nil
}

// ExportResult waits for an export to finish and returns its outcome.
func (s *Service) ExportResult(ctx context.Context, id string) (*ExportOutcome, error) {
	exp, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	select {
	case <-exp.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	exp.ListenerMu.Lock()
	defer exp.ListenerMu.Unlock()
	return exp.Outcome, nil
}

// notifyProgress sends the latest progress to all listeners.
func (exp *activeExport) notifyProgress() {
	exp.ListenerMu.Lock()
	defer exp.ListenerMu.Unlock()

	for _, ch := range exp.Listeners {
		select {
		case ch <- exp.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners delivers the terminal progress and closes all listener
// channels.
func (exp *activeExport) closeListeners() {
	exp.ListenerMu.Lock()
	defer exp.ListenerMu.Unlock()

	for _, ch := range exp.Listeners {
		select {
		case ch <- exp.Progress:
		default:
		}
		close(ch)
	}
	exp.Listeners = nil
}

// cleanup removes the export from tracking after a delay.
func (s *Service) cleanup(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.exports, id)
		s.mu.Unlock()
	})
}

// ExportHistory returns recent export runs, newest first.
func (s *Service) ExportHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.history.List(ctx, limit)
}

// MintResult counts minted identifiers.
type MintResult struct {
	Objects      int `json:"objects"`
	Preservation int `json:"preservation"`
	Access       int `json:"access"`
}

// MintArks mints the missing preservation and access ARKs of every object
// and writes them back to the live project. Minting stops at the first
// error; identifiers minted so far are kept.
func (s *Service) MintArks(ctx context.Context, minter Minter) (MintResult, error) {
	if err := s.guard.TryAcquire("mint"); err != nil {
		return MintResult{}, err
	}
	defer s.guard.Release()

	snap, ok := s.store.Snapshot()
	if !ok {
		return MintResult{}, ErrNoProject
	}

	logger := logging.FromContext(ctx)
	var result MintResult
	for _, obj := range snap.Project.Objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var pm, do string
		if obj.PMArk == "" {
			ark, err := minter.MintArk(ctx, obj, model.PurposePreservation)
			if err != nil {
				return result, fmt.Errorf("mint preservation ark for %s: %w", obj.UUID, err)
			}
			pm = ark
			result.Preservation++
		}
		if obj.DOArk == "" {
			ark, err := minter.MintArk(ctx, obj, model.PurposeAccess)
			if err != nil {
				return result, fmt.Errorf("mint access ark for %s: %w", obj.UUID, err)
			}
			do = ark
			result.Access++
		}
		if pm == "" && do == "" {
			continue
		}
		if _, err := s.store.SetArks(obj.UUID, pm, do); err != nil {
			return result, err
		}
		result.Objects++
		logger.Debug("minted arks", "uuid", obj.UUID, "pm_ark", pm, "do_ark", do)
	}

	logger.Info("ark minting completed", "objects", result.Objects)
	return result, nil
}

// ImportArchivalObjects appends one object per archival child of the
// project's resource.
func (s *Service) ImportArchivalObjects(ctx context.Context, source ArchivalSource) (int, error) {
	snap, ok := s.store.Snapshot()
	if !ok {
		return 0, ErrNoProject
	}
	if snap.Project.ResourceURI == "" {
		return 0, fmt.Errorf("import archival objects: project has no resource")
	}

	children, err := source.Children(ctx, snap.Project.ResourceURI)
	if err != nil {
		return 0, fmt.Errorf("import archival objects: %w", err)
	}
	for i, child := range children {
		if _, err := s.store.AddObject(model.NewArchivalObject(child, false)); err != nil {
			return i, err
		}
	}
	return len(children), nil
}

// Shutdown cancels running exports and waits for the guard to drain.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, exp := range s.exports {
		select {
		case <-exp.Done:
		default:
			exp.Cancel()
		}
	}
	s.mu.RUnlock()
	return s.guard.WaitForDrain(ctx)
}
