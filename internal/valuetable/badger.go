package valuetable

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStorage persists values in a BadgerDB directory, one key per
// (query, candidate) entry. A key is the uvarint length of the query followed
// by the query and candidate bytes.
type BadgerStorage struct {
	db   *badger.DB
	path string
}

// NewBadgerStorage opens (or creates) a BadgerDB at path.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", path, err)
	}
	return &BadgerStorage{db: db, path: path}, nil
}

// Location returns the BadgerDB directory.
func (s *BadgerStorage) Location() string { return s.path }

// Load reads every entry.
func (s *BadgerStorage) Load() (Values, error) {
	out := Values{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			query, candidate, ok := splitKey(item.Key())
			if !ok {
				return fmt.Errorf("%w: bad key %q", ErrMalformedState, item.Key())
			}
			err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("%w: bad value length %d for key %q", ErrMalformedState, len(val), item.Key())
				}
				row, ok := out[query]
				if !ok {
					row = make(map[string]float64)
					out[query] = row
				}
				row[candidate] = math.Float64frombits(binary.BigEndian.Uint64(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes every entry. Entries are never deleted, so overwriting every
// key replaces the persisted table.
func (s *BadgerStorage) Save(v Values) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for query, row := range v {
		for candidate, value := range row {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, math.Float64bits(value))
			if err := wb.Set(joinKey(query, candidate), buf); err != nil {
				return err
			}
		}
	}
	return wb.Flush()
}

// Close closes the database.
func (s *BadgerStorage) Close() error { return s.db.Close() }

func joinKey(query, candidate string) []byte {
	key := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(query)+len(candidate)), uint64(len(query)))
	key = append(key, query...)
	return append(key, candidate...)
}

func splitKey(key []byte) (query, candidate string, ok bool) {
	n, w := binary.Uvarint(key)
	if w <= 0 || n > uint64(len(key)-w) {
		return "", "", false
	}
	rest := key[w:]
	return string(rest[:n]), string(rest[n:]), true
}
