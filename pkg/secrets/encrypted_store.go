package secrets

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// KV is the persistence contract used by the encrypted store. Implementations
// only ever see sealed bytes.
type KV interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

type cipherSuite interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

// EncryptedStore keeps records sealed with XChaCha20-Poly1305 in a KV. It
// backs standalone deployments where no managed vault is available.
type EncryptedStore struct {
	kv   KV
	aead cipherSuite
}

var _ Store = (*EncryptedStore)(nil)

type sealedRecord struct {
	Value    string            `json:"value"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEncryptedStore builds a store using the given KV and key.
func NewEncryptedStore(kv KV, key []byte) (*EncryptedStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("secrets: encrypted store requires a kv")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secrets: encrypted store key must be %d bytes", chacha20poly1305.KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &EncryptedStore{kv: kv, aead: aead}, nil
}

// Put seals and stores a record. The secret name is bound as additional data
// so a sealed payload cannot be replayed under another name.
func (s *EncryptedStore) Put(ctx context.Context, rec Record) error {
	if rec.Name == "" {
		return ErrEmptyName
	}
	if rec.Value == "" {
		return ErrEmptyValue
	}
	plain, err := json.Marshal(sealedRecord{Value: rec.Value, Metadata: rec.Metadata})
	if err != nil {
		return fmt.Errorf("secrets: seal: %w", err)
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("secrets: nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plain, []byte(rec.Name))
	return s.kv.Put(ctx, rec.Name, sealed)
}

// Get fetches and opens a record.
func (s *EncryptedStore) Get(ctx context.Context, name string) (Record, error) {
	if name == "" {
		return Record{}, ErrEmptyName
	}
	sealed, err := s.kv.Get(ctx, name)
	if err != nil {
		return Record{}, err
	}
	size := s.aead.NonceSize()
	if len(sealed) < size {
		return Record{}, fmt.Errorf("secrets: sealed payload too short")
	}
	plain, err := s.aead.Open(nil, sealed[:size], sealed[size:], []byte(name))
	if err != nil {
		return Record{}, fmt.Errorf("secrets: decrypt: %w", err)
	}
	var payload sealedRecord
	if err := json.Unmarshal(plain, &payload); err != nil {
		return Record{}, fmt.Errorf("secrets: unseal: %w", err)
	}
	return Record{Name: name, Value: payload.Value, Metadata: payload.Metadata}, nil
}

// MemoryKV is an in-memory KV for the encrypted store.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string][]byte)}
}

func (m *MemoryKV) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.items[name] = buf
	return nil
}

func (m *MemoryKV) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.items[name]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}
