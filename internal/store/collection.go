package store

import "errors"

// Collection gives typed access to the values stored under one key prefix.
// Values are CBOR encoded; the zero Collection is not usable.
type Collection[K, V any] struct {
	prefix []byte
	key    func(K) []byte
}

// NewCollection returns a collection rooted at prefix whose keys are encoded by key.
func NewCollection[K, V any](prefix string, key func(K) []byte) Collection[K, V] {
	return Collection[K, V]{prefix: []byte(prefix + "/"), key: key}
}

func (c Collection[K, V]) rawKey(k K) []byte {
	kb := c.key(k)
	out := make([]byte, 0, len(c.prefix)+len(kb))
	out = append(out, c.prefix...)
	return append(out, kb...)
}

// Get decodes the value stored for k, or returns ErrNotFound.
func (c Collection[K, V]) Get(tx Tx, k K) (V, error) {
	var v V
	b, err := tx.Get(c.rawKey(k))
	if err != nil {
		return v, err
	}
	if err := decodeValue(b, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Has reports whether a value is stored for k.
func (c Collection[K, V]) Has(tx Tx, k K) (bool, error) {
	_, err := tx.Get(c.rawKey(k))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert stores v under k, replacing any previous value.
func (c Collection[K, V]) Insert(tx Tx, k K, v V) error {
	b, err := encodeValue(v)
	if err != nil {
		return err
	}
	return tx.Insert(c.rawKey(k), b)
}
