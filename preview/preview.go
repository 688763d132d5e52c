// Package preview makes a draft resumable across the editor/preview
// navigation boundary through a single shared storage slot.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ukaku-studio/bokutabi/draft"
	"github.com/ukaku-studio/bokutabi/models"
	"github.com/ukaku-studio/bokutabi/rdx"
)

// SlotID marks the snapshot payload in the handoff format.
const SlotID = "preview"

const draftSlotKey = "draft:preview"

// Slot is the storage behind the bridge.
type Slot interface {
	Write(ctx context.Context, data []byte) error
	// Read returns nil data when the slot is empty.
	Read(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
}

// RedisSlot keeps the draft in the shared redis instance so any editor
// process can resume it.
type RedisSlot struct {
	key string
}

func NewRedisSlot() *RedisSlot {
	return &RedisSlot{key: draftSlotKey}
}

func (s *RedisSlot) Write(ctx context.Context, data []byte) error {
	return rdx.Conn.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisSlot) Read(ctx context.Context) ([]byte, error) {
	data, err := rdx.Conn.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s *RedisSlot) Clear(ctx context.Context) error {
	return rdx.Conn.Del(ctx, s.key).Err()
}

// MemorySlot is the in-process stand-in used by tests and when redis is not
// configured.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
}

func NewMemorySlot() *MemorySlot { return &MemorySlot{} }

func (s *MemorySlot) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *MemorySlot) Read(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemorySlot) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// Bridge serializes drafts into the slot and back.
type Bridge struct {
	slot Slot
}

func NewBridge(slot Slot) *Bridge {
	return &Bridge{slot: slot}
}

// Snapshot writes the draft to the slot, superseding any previous snapshot.
func (b *Bridge) Snapshot(ctx context.Context, s *draft.Store) error {
	entries := s.Entries()
	for i, e := range entries {
		entries[i] = draft.Normalize(e)
	}
	data, err := json.Marshal(models.DraftSnapshot{
		ID:      SlotID,
		Title:   s.Title(),
		Entries: entries,
	})
	if err != nil {
		return err
	}
	return b.slot.Write(ctx, data)
}

// Restore reads the slot back. An absent or malformed snapshot yields nil;
// corruption is treated as "no draft to resume", never surfaced.
func (b *Bridge) Restore(ctx context.Context) *models.DraftSnapshot {
	data, err := b.slot.Read(ctx)
	if err != nil || data == nil {
		return nil
	}
	var snap models.DraftSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return &snap
}

// Clear empties the slot. Only called on explicit user choice; saving a trip
// never clears it.
func (b *Bridge) Clear(ctx context.Context) error {
	return b.slot.Clear(ctx)
}
