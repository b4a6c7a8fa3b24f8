package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wctimer/server/pkg/metrics"
)

// Treap-based, in-memory Ledger implementation.
//
// Ordering: kaki DESC, then playerID ASC (deterministic). The BST
// comparator treats "less" as ranks-earlier, so an in-order traversal
// yields the leaderboard from richest to poorest. Balances are exact
// int64 kaki; no floating point is involved anywhere in the ordering.

// Snapshot is an immutable point-in-time view of the ledger.
type Snapshot struct {
	// Rank and balance in O(1) for reads.
	RankByPlayer map[string]int
	KakiByPlayer map[string]int64

	// Fast Top-K cache, sorted descending.
	TopCache []Entry
}

// treap node
type node struct {
	id    string
	kaki  int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aKaki, aID) should appear before (bKaki, bID)
// in the leaderboard (richer ranks earlier).
func less(aKaki int64, aID string, bKaki int64, bID string) bool {
	if aKaki != bKaki {
		return aKaki > bKaki
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// balanceToPriority keeps richer players near the treap root so TopN
// traversals touch fewer nodes. The offset maps the full int64 range
// onto uint64 monotonically.
func balanceToPriority(kaki int64) uint64 {
	const offset = uint64(1) << 63
	return uint64(kaki) + offset
}

func insert(n *node, id string, kaki int64) *node {
	if n == nil {
		return &node{id: id, kaki: kaki, prio: balanceToPriority(kaki), size: 1}
	}
	if less(kaki, id, n.kaki, n.id) {
		n.left = insert(n.left, id, kaki)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, kaki)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, kaki int64) *node {
	if n == nil {
		return nil
	}
	if kaki == n.kaki && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, kaki)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, kaki)
		}
	} else if less(kaki, id, n.kaki, n.id) {
		n.left = deleteNode(n.left, id, kaki)
	} else {
		n.right = deleteNode(n.right, id, kaki)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order (richest first).
// In-order traversal of the treap is already the leaderboard order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	collectTopN(n.left, limit, out)

	if len(*out) < limit {
		*out = append(*out, Entry{PlayerID: n.id, Kaki: n.kaki})
	}

	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// collectAll appends every entry in rank order (richest first).
func collectAll(n *node, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, out)
	*out = append(*out, Entry{PlayerID: n.id, Kaki: n.kaki})
	collectAll(n.right, out)
}

// assignRanksWithTies assigns ranks over entries already in leaderboard
// order. Players with the same balance share a rank; the next distinct
// balance takes the following consecutive rank.
func assignRanksWithTies(entries []Entry) {
	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameCount := 1
		for j := i + 1; j < len(entries) && entries[j].Kaki == entries[i].Kaki; j++ {
			entries[j].Rank = currentRank
			sameCount++
		}

		currentRank++
		i += sameCount - 1
	}
}

// TreapStore is the in-memory ledger used at runtime. Durable copies of
// the balances live in the storage adapter; the treap exists for cheap
// ordered reads under concurrent updates.
type TreapStore struct {
	mu                    sync.RWMutex
	root                  *node
	byID                  map[string]int64
	snapshotInterval      time.Duration
	topCacheSize          int
	metricsUpdateInterval time.Duration

	snapshot atomic.Pointer[Snapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		snapshotInterval:      1 * time.Second,
		topCacheSize:          500,
		metricsUpdateInterval: 5 * time.Second,
		byID:                  make(map[string]int64),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)
	s.startMetricsUpdater(ctx)

	return s
}

func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes a new snapshot.
func (s *TreapStore) publishSnapshot() {
	start := time.Now()

	s.mu.RLock()

	topCache := make([]Entry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, &topCache)

	allEntries := make([]Entry, 0, len(s.byID))
	collectAll(s.root, &allEntries)
	assignRanksWithTies(allEntries)

	rankByPlayer := make(map[string]int, len(allEntries))
	kakiByPlayer := make(map[string]int64, len(allEntries))
	for _, entry := range allEntries {
		rankByPlayer[entry.PlayerID] = entry.Rank
		kakiByPlayer[entry.PlayerID] = entry.Kaki
	}

	s.mu.RUnlock()

	for i := range topCache {
		topCache[i].Rank = rankByPlayer[topCache[i].PlayerID]
	}

	s.snapshot.Store(&Snapshot{
		RankByPlayer: rankByPlayer,
		KakiByPlayer: kakiByPlayer,
		TopCache:     topCache,
	})

	metrics.RecordLedgerSnapshot(float64(time.Since(start).Milliseconds()))
}

// GetSnapshot returns the most recently published snapshot, or nil if
// none has been published yet.
func (s *TreapStore) GetSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// Close gracefully shuts down the background goroutines.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
		// already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// ApplyDelta implements Ledger.ApplyDelta with O(log n) expected time.
func (s *TreapStore) ApplyDelta(ctx context.Context, playerID string, delta int64) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	old, known := s.byID[playerID]
	if known {
		s.root = deleteNode(s.root, playerID, old)
	}
	next := old + delta
	s.byID[playerID] = next
	s.root = insert(s.root, playerID, next)
	s.mu.Unlock()

	if !known {
		metrics.UpdateLedgerPlayers(s.Count(ctx))
	}

	return next, nil
}

// SetBalance implements Ledger.SetBalance.
func (s *TreapStore) SetBalance(ctx context.Context, playerID string, kaki int64) error {
	s.mu.Lock()
	if old, known := s.byID[playerID]; known {
		s.root = deleteNode(s.root, playerID, old)
	}
	s.byID[playerID] = kaki
	s.root = insert(s.root, playerID, kaki)
	s.mu.Unlock()

	metrics.UpdateLedgerPlayers(s.Count(ctx))
	return nil
}

// Balance implements Ledger.Balance in O(1).
func (s *TreapStore) Balance(ctx context.Context, playerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kaki, ok := s.byID[playerID]
	if !ok {
		metrics.RecordErrorByComponent("ledger", "not_found")
		return 0, ErrNotFound
	}
	return kaki, nil
}

// Rank returns the current rank and balance for a player.
func (s *TreapStore) Rank(ctx context.Context, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[playerID]; !ok {
		metrics.RecordErrorByComponent("ledger", "not_found")
		return Entry{}, ErrNotFound
	}

	allEntries := make([]Entry, 0, len(s.byID))
	collectAll(s.root, &allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		if entry.PlayerID == playerID {
			return entry, nil
		}
	}

	return Entry{}, ErrNotFound
}

// TopN returns the top N entries ordered by balance desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("ledger", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of players tracked.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateLedgerPlayers(s.Count(ctx))
			}
		}
	}()
}
