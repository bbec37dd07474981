// Package state persists applied deployment snapshots so `varusta output`
// and the watch daemon can answer questions without hitting the cloud.
// Snapshots are revisioned etcd-style: every apply bumps the revision and
// older snapshots stay queryable until compaction.
package state

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/yairfalse/varusta/types"
)

// Bucket names in bbolt
var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")
)

var keyCurrentRevision = []byte("current_revision")

// Snapshot is one applied deployment state.
type Snapshot struct {
	Revision  int64            `json:"revision"`
	AppliedAt time.Time        `json:"applied_at"`
	GroupName string           `json:"group_name"`
	Outputs   types.Outputs    `json:"outputs"`
	Cloud     types.CloudState `json:"cloud"`
}

// ResourceRecord tracks one resource across revisions in the index.
type ResourceRecord struct {
	ResourceID   string
	Role         string
	Kind         string
	FirstSeenRev int64
	LastSeenRev  int64
	Exists       bool
}

// Store is the on-disk snapshot store with an in-memory resource index.
type Store struct {
	mu sync.RWMutex

	// In-memory index for fast lookups
	index *btree.BTreeG[*ResourceRecord]

	// On-disk storage
	db *bbolt.DB

	// Current revision number
	currentRev int64

	dir string
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "varusta.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketSnapshots, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		index: btree.NewG[*ResourceRecord](32, func(a, b *ResourceRecord) bool {
			return a.ResourceID < b.ResourceID
		}),
		db:  db,
		dir: dir,
	}

	store.loadRevision()
	if err := store.rebuildIndex(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	return store, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSnapshot records the post-apply state and returns its revision.
func (s *Store) RecordSnapshot(groupName string, outputs types.Outputs, cloud types.CloudState) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRev++
	rev := s.currentRev

	snapshot := Snapshot{
		Revision:  rev,
		AppliedAt: time.Now().UTC(),
		GroupName: groupName,
		Outputs:   outputs,
		Cloud:     cloud,
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		value, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketSnapshots).Put(revisionKey(rev), value); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyCurrentRevision, int64ToBytes(rev))
	})
	if err != nil {
		s.currentRev--
		return 0, err
	}

	s.indexSnapshot(snapshot)
	return rev, nil
}

// LatestSnapshot returns the most recently recorded snapshot.
func (s *Store) LatestSnapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentRev == 0 {
		return nil, fmt.Errorf("no snapshots recorded")
	}
	return s.snapshotAt(s.currentRev)
}

// SnapshotAt returns the snapshot recorded at revision.
func (s *Store) SnapshotAt(revision int64) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotAt(revision)
}

func (s *Store) snapshotAt(revision int64) (*Snapshot, error) {
	var snapshot *Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSnapshots).Get(revisionKey(revision))
		if data == nil {
			return nil
		}
		snapshot = &Snapshot{}
		return json.Unmarshal(data, snapshot)
	})
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("no snapshot at revision %d", revision)
	}
	return snapshot, nil
}

// ResourceState returns the index record for a resource ID.
func (s *Store) ResourceState(resourceID string) (*ResourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.index.Get(&ResourceRecord{ResourceID: resourceID})
	if !found {
		return nil, fmt.Errorf("resource %s not found", resourceID)
	}
	return record, nil
}

// ResourcesByRole returns live resources carrying the given role.
func (s *Store) ResourcesByRole(role string) []*ResourceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*ResourceRecord
	s.index.Ascend(func(record *ResourceRecord) bool {
		if record.Role == role && record.Exists {
			results = append(results, record)
		}
		return true
	})
	return results
}

// CurrentRevision returns the current revision number.
func (s *Store) CurrentRevision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRev
}

// Compact drops snapshots older than the last keepRevisions.
func (s *Store) Compact(keepRevisions int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.currentRev - keepRevisions
	if cutoff <= 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		c := bucket.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if bytesToInt64(k) <= cutoff {
				toDelete = append(toDelete, k)
			}
		}

		for _, key := range toDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// indexSnapshot folds a snapshot's resources into the index. Resources
// present in an older record but missing from this snapshot are marked
// as gone at this revision.
func (s *Store) indexSnapshot(snapshot Snapshot) {
	seen := make(map[string]bool)

	upsert := func(id, role, kind string) {
		seen[id] = true
		existing, found := s.index.Get(&ResourceRecord{ResourceID: id})
		if !found {
			existing = &ResourceRecord{
				ResourceID:   id,
				Role:         role,
				Kind:         kind,
				FirstSeenRev: snapshot.Revision,
			}
		}
		existing.Role = role
		existing.LastSeenRev = snapshot.Revision
		existing.Exists = true
		s.index.ReplaceOrInsert(existing)
	}

	for _, group := range snapshot.Cloud.Groups {
		upsert(group.ID, "", types.ResourceSecurityGroup)
	}
	for _, inst := range snapshot.Cloud.Instances {
		upsert(inst.ID, inst.Role, types.ResourceInstance)
	}

	var gone []*ResourceRecord
	s.index.Ascend(func(record *ResourceRecord) bool {
		if record.Exists && !seen[record.ResourceID] {
			gone = append(gone, record)
		}
		return true
	})
	for _, record := range gone {
		record.Exists = false
		record.LastSeenRev = snapshot.Revision
		s.index.ReplaceOrInsert(record)
	}
}

func (s *Store) loadRevision() {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyCurrentRevision)
		if data != nil {
			s.currentRev = bytesToInt64(data)
		}
		return nil
	})
}

// rebuildIndex replays every surviving snapshot in revision order.
func (s *Store) rebuildIndex() error {
	var snapshots []Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var snapshot Snapshot
			if err := json.Unmarshal(v, &snapshot); err != nil {
				return fmt.Errorf("corrupt snapshot at key %q: %w", k, err)
			}
			snapshots = append(snapshots, snapshot)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, snapshot := range snapshots {
		s.indexSnapshot(snapshot)
	}
	return nil
}

func revisionKey(rev int64) []byte {
	return []byte(fmt.Sprintf("%016d", rev))
}

func int64ToBytes(n int64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func bytesToInt64(b []byte) int64 {
	var n int64
	_, _ = fmt.Sscanf(string(b), "%d", &n)
	return n
}
