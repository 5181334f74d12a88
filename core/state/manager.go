package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"pthooks/storage"
)

// ErrInvalidSnapshot is returned when reverting to a revision that does not
// exist or was already discarded.
var ErrInvalidSnapshot = errors.New("state: invalid snapshot")

type dirtyValue struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key     string
	prev    dirtyValue
	hadPrev bool
}

// Manager is a journaled view over a key-value database. Writes are buffered
// in memory and recorded in a journal so that any enclosing unit of work can
// be rolled back with RevertToSnapshot. Commit flushes the buffered writes to
// the backing database.
//
// Manager is not safe for concurrent use. Execution is single threaded and
// nested calls share the same journal.
type Manager struct {
	db        storage.Database
	dirty     map[string]dirtyValue
	journal   []journalEntry
	revisions []int
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	if db == nil {
		db = storage.NewMemDB()
	}
	return &Manager{db: db, dirty: make(map[string]dirtyValue)}
}

func hashKey(prefix []byte, parts ...[]byte) []byte {
	buf := make([]byte, 0, len(prefix)+32*len(parts))
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, ':')
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if entry, ok := m.dirty[string(key)]; ok {
		if entry.deleted {
			return nil, false, nil
		}
		return entry.value, true, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) record(key string) {
	prev, ok := m.dirty[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadPrev: ok})
}

func (m *Manager) put(key, value []byte) {
	k := string(key)
	m.record(k)
	m.dirty[k] = dirtyValue{value: append([]byte(nil), value...)}
}

func (m *Manager) delete(key []byte) {
	k := string(key)
	m.record(k)
	m.dirty[k] = dirtyValue{deleted: true}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, ok, err := m.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode: %w", err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	m.put(key, encoded)
	return nil
}

// Snapshot opens a revision that can later be reverted.
func (m *Manager) Snapshot() int {
	m.revisions = append(m.revisions, len(m.journal))
	return len(m.revisions) - 1
}

// RevertToSnapshot undoes every write performed since the revision was
// taken. The revision and any revisions opened after it are discarded.
func (m *Manager) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(m.revisions) {
		return ErrInvalidSnapshot
	}
	mark := m.revisions[id]
	for i := len(m.journal) - 1; i >= mark; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:mark]
	m.revisions = m.revisions[:id]
	return nil
}

// Commit writes all buffered changes to the backing database and clears the
// journal. Open revisions become invalid.
func (m *Manager) Commit() error {
	for key, entry := range m.dirty {
		var err error
		if entry.deleted {
			err = m.db.Delete([]byte(key))
		} else {
			err = m.db.Put([]byte(key), entry.value)
		}
		if err != nil {
			return fmt.Errorf("state: commit: %w", err)
		}
	}
	m.dirty = make(map[string]dirtyValue)
	m.journal = nil
	m.revisions = nil
	return nil
}

// Discard drops every uncommitted write.
func (m *Manager) Discard() {
	m.dirty = make(map[string]dirtyValue)
	m.journal = nil
	m.revisions = nil
}

// Pending reports the number of keys with uncommitted writes.
func (m *Manager) Pending() int {
	return len(m.dirty)
}
