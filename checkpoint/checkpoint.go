// Package checkpoint persists sampler chain snapshots in a bolt
// database so interrupted fits can warm-start instead of sampling from
// scratch.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

var log = logging.MustGetLogger("checkpoint")

// chainsBucket is the bucket name for all chain snapshots.
var chainsBucket = []byte("chains")

// ChainState is a snapshot of one sampler chain: the current parameter
// vector, the per-parameter proposal scales and the iteration counter.
type ChainState struct {
	Chain   int       `json:"chain"`
	Iter    int       `json:"iter"`
	Values  []float64 `json:"values"`
	Scales  []float64 `json:"scales"`
	LogPost float64   `json:"logPost"`
	Final   bool      `json:"final"`
}

// Store writes chain snapshots for one run, rate-limited so frequent
// saves do not turn into constant disk traffic. Chains save
// concurrently; bolt serializes the writes.
type Store struct {
	db      *bolt.DB
	run     string
	seconds float64

	mu   sync.Mutex
	last map[int]time.Time
}

// Open opens (creating if needed) a bolt database at path and returns a
// store for the named run.
func Open(path, run string, seconds float64) (*Store, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, err
	}
	return NewStore(db, run, seconds), nil
}

// NewStore creates a store on an already open database. A snapshot for
// a chain is due again after the given number of seconds.
func NewStore(db *bolt.DB, run string, seconds float64) *Store {
	return &Store{
		db:      db,
		run:     run,
		seconds: seconds,
		last:    make(map[int]time.Time),
	}
}

func (s *Store) key(chain int) []byte {
	return []byte(fmt.Sprintf("%s/chain-%d", s.run, chain))
}

// Due returns true if the chain has not been saved recently.
func (s *Store) Due(chain int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.last[chain]).Seconds() > s.seconds
}

// Save writes a chain snapshot.
func (s *Store) Save(state *ChainState) error {
	// Even if saving fails, we do not want to retry too often.
	s.mu.Lock()
	s.last[state.Chain] = time.Now()
	s.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		log.Error("Error serializing checkpoint: ", err)
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(chainsBucket)
		if err != nil {
			return err
		}
		return b.Put(s.key(state.Chain), data)
	})
	if err != nil {
		log.Error("Error saving checkpoint: ", err)
	}
	return err
}

// Load returns the saved snapshot for a chain, or nil if there is none.
func (s *Store) Load(chain int) (*ChainState, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(chainsBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(s.key(chain)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}

	var state *ChainState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil || len(state.Values) == 0 {
		return nil, nil
	}
	if state.Final {
		log.Noticef("Found finished chain %d checkpoint (iter=%v, lnP=%v)", chain, state.Iter, state.LogPost)
	} else {
		log.Noticef("Found unfinished chain %d checkpoint (iter=%v, lnP=%v)", chain, state.Iter, state.LogPost)
	}
	return state, nil
}

// Delete removes the run's snapshots.
func (s *Store) Delete() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(chainsBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefix := []byte(s.run + "/")
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
