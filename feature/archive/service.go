package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"asset-tracker/core/storage"
	"asset-tracker/core/tracking"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const ledgerObjectPrefix = storage.LedgerPrefix + "/movements-"

// ErrInvalidKey is returned for object keys outside the archive folders.
var ErrInvalidKey = errors.New("invalid archive key")

// Export describes one uploaded object.
type Export struct {
	Key     string   `json:"key"`
	Records int      `json:"records"`
	Size    int64    `json:"size"`
	Pruned  []string `json:"pruned,omitempty"`
}

// Object is a stored export.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Snapshot is the inventory document.
type Snapshot struct {
	GeneratedAt time.Time                    `json:"generated_at"`
	Items       []tracking.Item              `json:"items"`
	Rooms       map[tracking.RoomID][]string `json:"rooms"`
}

// Service exports tracking data to object storage.
type Service struct {
	store  tracking.Store
	client storage.Client
	bucket string
	retain int
	rooms  *tracking.Rooms
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an archive service. retain is the number of ledger
// exports kept; zero keeps all. Nil rooms use tracking.DefaultRooms.
func NewService(store tracking.Store, client storage.Client, bucket string, retain int, rooms *tracking.Rooms, logger *zap.Logger) *Service {
	if rooms == nil {
		rooms = tracking.DefaultRooms()
	}
	return &Service{
		store:  store,
		client: client,
		bucket: bucket,
		retain: retain,
		rooms:  rooms,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExportLedger uploads the whole movement ledger and applies retention.
func (s *Service) ExportLedger(ctx context.Context) (*Export, error) {
	records, err := s.store.ListMovements(ctx, tracking.MovementFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("failed to encode record %d: %w", rec.ID, err)
		}
	}

	key := fmt.Sprintf("%s%d.jsonl", ledgerObjectPrefix, s.now().UnixMilli())
	export, err := s.put(ctx, key, &buf, "application/x-ndjson")
	if err != nil {
		return nil, err
	}
	export.Records = len(records)

	pruned, err := s.prune(ctx)
	export.Pruned = pruned
	if err != nil {
		s.logger.Warn("Ledger retention failed", zap.Error(err))
	}

	s.logger.Info("Ledger exported",
		zap.String("key", key),
		zap.Int("records", export.Records),
		zap.Int("pruned", len(pruned)),
	)
	return export, nil
}

// ExportInventory uploads every item and the membership of every room.
func (s *Service) ExportInventory(ctx context.Context) (*Export, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	snap := Snapshot{
		GeneratedAt: s.now(),
		Items:       items,
		Rooms:       make(map[tracking.RoomID][]string),
	}
	for _, room := range s.rooms.List() {
		members, err := s.store.Members(ctx, room)
		if err != nil {
			return nil, fmt.Errorf("failed to read members of %q: %w", room, err)
		}
		snap.Rooms[room] = members
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/snapshot-%d.json", storage.InventoryPrefix, snap.GeneratedAt.UnixMilli())
	export, err := s.put(ctx, key, bytes.NewBuffer(data), "application/json")
	if err != nil {
		return nil, err
	}
	export.Records = len(items)

	s.logger.Info("Inventory exported", zap.String("key", key), zap.Int("items", len(items)))
	return export, nil
}

func (s *Service) put(ctx context.Context, key string, buf *bytes.Buffer, contentType string) (*Export, error) {
	size := int64(buf.Len())
	info, err := s.client.PutObject(ctx, s.bucket, key, buf, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if info.Size > 0 {
		size = info.Size
	}
	return &Export{Key: key, Size: size}, nil
}

// List returns the stored exports under prefix, oldest first.
func (s *Service) List(ctx context.Context, prefix string) ([]Object, error) {
	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/"
		if !validKey(prefix) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidKey, prefix)
		}
	}
	var objects []Object
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list exports: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Open streams a stored export.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
}

// prune removes the oldest ledger exports beyond the retention count.
func (s *Service) prune(ctx context.Context) ([]string, error) {
	if s.retain <= 0 {
		return nil, nil
	}
	objects, err := s.List(ctx, storage.LedgerPrefix)
	if err != nil {
		return nil, err
	}
	var exports []string
	for _, obj := range objects {
		if strings.HasPrefix(obj.Key, ledgerObjectPrefix) {
			exports = append(exports, obj.Key)
		}
	}
	if len(exports) <= s.retain {
		return nil, nil
	}

	var pruned []string
	for _, key := range exports[:len(exports)-s.retain] {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return pruned, fmt.Errorf("failed to remove %s: %w", key, err)
		}
		pruned = append(pruned, key)
	}
	return pruned, nil
}

func validKey(key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, storage.LedgerPrefix+"/") || strings.HasPrefix(key, storage.InventoryPrefix+"/")
}
