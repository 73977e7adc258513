package session

import (
	"fmt"
	"sync"

	"github.com/churnhealth/backend/internal/models"
	"github.com/churnhealth/backend/internal/utils"
)

// BatchID derives the session key for an upload from its filename and
// row count. Re-uploading the same file lands on the same entry, which
// is what makes the dispatch pass idempotent per upload.
func BatchID(filename string, rows int) string {
	return fmt.Sprintf("batch_%016x", utils.HashStringToUint64(fmt.Sprintf("%s:%d", filename, rows)))
}

// Entry is the session state for one uploaded batch: the scored table,
// the top-risk selection, operator-reviewed drafts, and the dispatch
// flag with its recorded report. Nothing here survives a restart.
type Entry struct {
	Batch      *models.Batch
	Scored     []models.ScoredRecord
	Top        []models.ScoredRecord
	Drafts     map[string]string
	Dispatched bool
	Report     *models.DeliveryReport

	dispatching bool
}

// Store keeps per-upload session entries keyed by batch ID.
type Store struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*Entry
}

func NewStore() *Store {
	s := &Store{entries: map[string]*Entry{}}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Put registers (or replaces) the entry for a batch.
func (s *Store) Put(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Batch.ID] = e
	s.cond.Broadcast()
}

func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// SetDrafts stores operator-reviewable generated emails keyed by
// customer ID.
func (s *Store) SetDrafts(id string, drafts map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.Drafts = drafts
	return true
}

// DispatchedReport returns the recorded report if a pass already ran for
// this batch. The second invocation of a pass must replay this verbatim
// instead of re-sending.
func (s *Store) DispatchedReport(id string) (*models.DeliveryReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.Dispatched {
		return nil, false
	}
	return e.Report, true
}

// DispatchClaim is the snapshot handed to the single pass runner. When
// Report is non-nil a pass already ran and the caller must replay it
// instead of sending. Top and Drafts are copies; the session entry can
// keep changing underneath without racing the pass.
type DispatchClaim struct {
	Top    []models.ScoredRecord
	Drafts map[string]string
	Report *models.DeliveryReport
}

// BeginDispatch claims the outreach pass for a batch. The transition is
// atomic under the store lock: the first caller gets the snapshot and
// owns the pass, concurrent callers block until it completes and then
// receive the pinned report. RecordReport releases the claim.
func (s *Store) BeginDispatch(id string) (DispatchClaim, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		e, ok := s.entries[id]
		if !ok {
			return DispatchClaim{}, false
		}
		if e.Dispatched {
			return DispatchClaim{Report: e.Report}, true
		}
		if !e.dispatching {
			e.dispatching = true
			top := make([]models.ScoredRecord, len(e.Top))
			copy(top, e.Top)
			drafts := make(map[string]string, len(e.Drafts))
			for cid, body := range e.Drafts {
				drafts[cid] = body
			}
			return DispatchClaim{Top: top, Drafts: drafts}, true
		}
		s.cond.Wait()
	}
}

// RecordReport marks the batch as dispatched, pins the report and wakes
// any caller waiting on the claim.
func (s *Store) RecordReport(id string, report *models.DeliveryReport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.dispatching = false
	e.Dispatched = true
	e.Report = report
	return true
}
