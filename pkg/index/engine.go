package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/metrics"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// DefaultFlushThreshold is the commit policy's N: flush() skips the
// commit once more than this many flushes have elapsed since the last
// indexing activity.
const DefaultFlushThreshold = 10

// termRef is one (field, term) pair a document contributed to the index,
// recorded so EventDelete can remove exactly what EventUpdate added.
type termRef struct {
	field string
	term  string
}

// Engine is the per-partition inverted index.
type Engine struct {
	schema   *Schema
	kv       kv.Store
	indexDir string

	mu       sync.RWMutex
	postings map[string]map[string]*roaring.Bitmap
	live     *roaring.Bitmap
	docTerms map[uint32][]termRef

	sendMu sync.Mutex // serializes Write callers
	q      *queue
	wg     sync.WaitGroup

	activity       uint32 // atomic, reset to 0 after every processed event
	flushThreshold uint32
}

// Open builds the schema from collection and starts the dedicated indexing
// worker goroutine. indexDir is where commit() persists segments
// (base_path/<collection_id>/<partition_id>/index).
func Open(collection *types.Collection, store kv.Store, indexDir string) (*Engine, error) {
	schema, err := buildSchema(collection)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	e := &Engine{
		schema:         schema,
		kv:             store,
		indexDir:       indexDir,
		postings:       make(map[string]map[string]*roaring.Bitmap),
		live:           roaring.New(),
		docTerms:       make(map[uint32][]termRef),
		q:              newQueue(),
		flushThreshold: DefaultFlushThreshold,
	}

	if err := e.loadSegment(); err != nil {
		log.WithComponent("index").Warn().Err(err).Msg("failed to load prior index segment, starting empty")
	}

	e.wg.Add(1)
	go e.run()

	return e, nil
}

// Write enqueues an index event. Safe for concurrent callers (the mutex
// exists to keep sends single-threaded during replay+live overlap, even
// though there is logically one apply thread).
func (e *Engine) Write(ev Event) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	e.q.push(ev)
	metrics.IndexEventQueueDepth.Set(float64(e.q.len()))
}

// Stop sends Stop and waits for the worker goroutine to exit.
func (e *Engine) Stop() {
	e.Write(Event{Kind: EventStop})
	e.wg.Wait()
}

// Release closes out any on-disk resources; for this engine that's a no-op
// beyond Stop, since segment state is flushed by commit(), not held open.
func (e *Engine) Release() {}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		ev := e.q.pop()
		metrics.IndexEventQueueDepth.Set(float64(e.q.len()))
		switch ev.Kind {
		case EventDelete:
			e.processDelete(ev.Prior)
		case EventUpdate:
			e.processUpdate(ev.Prior, ev.New)
		case EventStop:
			return
		}
		atomic.StoreUint32(&e.activity, 0)
	}
}

func (e *Engine) processDelete(iid uint32) {
	if iid == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(iid)
}

func (e *Engine) processUpdate(prior, new uint32) {
	if prior > 0 {
		e.mu.Lock()
		e.removeLocked(prior)
		e.mu.Unlock()
	}
	if new == 0 {
		return
	}

	raw, found, err := e.kv.Get(kv.DocKey(new))
	if err != nil {
		log.WithComponent("index").Error().Err(err).Uint32("iid", new).Msg("read document for indexing")
		return
	}
	if !found {
		return
	}
	doc, err := types.DecodeDocument(raw)
	if err != nil {
		log.WithComponent("index").Error().Err(err).Uint32("iid", new).Msg("decode document for indexing")
		return
	}

	e.indexDoc(new, doc)
}

// indexDoc projects doc's fields per the schema and records the resulting
// postings for iid. Shared by the live apply path (processUpdate, which
// reads the document from the KV store first) and Rebuild (which already
// has the document in hand from a prefix scan).
func (e *Engine) indexDoc(iid uint32, doc types.Document) {
	var src map[string]interface{}
	if err := json.Unmarshal(doc.Source, &src); err != nil {
		log.WithComponent("index").Warn().Err(err).Uint32("iid", iid).Msg("document source is not a JSON object, skipping projection")
		return
	}

	var terms []termRef
	for _, f := range e.schema.Fields {
		val, present := src[f.Name]
		if !present || val == nil {
			continue // missing/null fields are skipped, not zero-valued
		}
		if f.Array {
			arr, ok := val.([]interface{})
			if !ok {
				continue
			}
			for _, elem := range arr {
				if elem == nil {
					continue
				}
				if ts, ok := termForValue(f.Kind, elem); ok {
					for _, t := range ts {
						terms = append(terms, termRef{field: f.Name, term: t})
					}
				}
			}
			continue
		}
		if ts, ok := termForValue(f.Kind, val); ok {
			for _, t := range ts {
				terms = append(terms, termRef{field: f.Name, term: t})
			}
		}
	}

	if len(terms) == 0 {
		// Nothing to index: skip entirely when no field was populated.
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, tr := range terms {
		byTerm, ok := e.postings[tr.field]
		if !ok {
			byTerm = make(map[string]*roaring.Bitmap)
			e.postings[tr.field] = byTerm
		}
		bm, ok := byTerm[tr.term]
		if !ok {
			bm = roaring.New()
			byTerm[tr.term] = bm
		}
		bm.Add(iid)
	}
	e.docTerms[iid] = terms
	e.live.Add(iid)
}

// removeLocked undoes everything processUpdate recorded for iid. Caller
// must hold e.mu.
func (e *Engine) removeLocked(iid uint32) {
	for _, tr := range e.docTerms[iid] {
		if byTerm, ok := e.postings[tr.field]; ok {
			if bm, ok := byTerm[tr.term]; ok {
				bm.Remove(iid)
				if bm.IsEmpty() {
					delete(byTerm, tr.term)
				}
			}
		}
	}
	delete(e.docTerms, iid)
	e.live.Remove(iid)
}

// Flush triggers the commit-rate-limited segment commit.
func (e *Engine) Flush() error {
	n := atomic.AddUint32(&e.activity, 1)
	if n > e.flushThreshold {
		metrics.IndexCommitsSkippedTotal.Inc()
		return nil
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.IndexCommitDuration)
	return e.commit()
}

// Rebuild discards the in-memory index and re-derives it from every
// document currently in the KV store, then commits a fresh segment. Used
// by pkg/raftbinding's FSM.Restore after installing a Raft snapshot: the
// index is derived state, not part of the snapshot itself, so it is
// rebuilt rather than transferred.
func (e *Engine) Rebuild() error {
	e.mu.Lock()
	e.postings = make(map[string]map[string]*roaring.Bitmap)
	e.live = roaring.New()
	e.docTerms = make(map[uint32][]termRef)
	e.mu.Unlock()

	err := e.kv.PrefixIterate(kv.DocPrefix(), func(key, value []byte) (bool, error) {
		doc, err := types.DecodeDocument(value)
		if err != nil {
			log.WithComponent("index").Warn().Err(err).Msg("skipping undecodable document during rebuild")
			return true, nil
		}
		e.indexDoc(kv.IIDFromDocKey(key), doc)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return e.commit()
}

// Count returns the number of live indexed documents.
func (e *Engine) Count() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.GetCardinality()
}

// Exist reports whether iid currently has a posting in the index.
func (e *Engine) Exist(iid uint32) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live.Contains(iid)
}

type segmentFile struct {
	Postings map[string]map[string][]uint32
	Live     []uint32
	DocTerms map[uint32][]termRef
}

// commit persists the in-memory index to indexDir/segment.json, fsyncing
// before the atomic rename; commit is blocking.
func (e *Engine) commit() error {
	e.mu.RLock()
	snap := segmentFile{
		Postings: make(map[string]map[string][]uint32, len(e.postings)),
		Live:     e.live.ToArray(),
		DocTerms: make(map[uint32][]termRef, len(e.docTerms)),
	}
	for field, byTerm := range e.postings {
		m := make(map[string][]uint32, len(byTerm))
		for term, bm := range byTerm {
			m[term] = bm.ToArray()
		}
		snap.Postings[field] = m
	}
	for iid, terms := range e.docTerms {
		snap.DocTerms[iid] = terms
	}
	e.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal index segment: %w", err)
	}

	tmp := filepath.Join(e.indexDir, "segment.json.tmp")
	final := filepath.Join(e.indexDir, "segment.json")

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create segment temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write index segment: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync index segment: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index segment: %w", err)
	}
	return os.Rename(tmp, final)
}

func (e *Engine) loadSegment() error {
	final := filepath.Join(e.indexDir, "segment.json")
	data, err := os.ReadFile(final)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap segmentFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for field, byTerm := range snap.Postings {
		m := make(map[string]*roaring.Bitmap, len(byTerm))
		for term, ids := range byTerm {
			bm := roaring.New()
			bm.AddMany(ids)
			m[term] = bm
		}
		e.postings[field] = m
	}
	e.live = roaring.New()
	e.live.AddMany(snap.Live)
	for iid, terms := range snap.DocTerms {
		e.docTerms[iid] = terms
	}
	return nil
}
