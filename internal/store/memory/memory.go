package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string][]store.Document
}

func New() *Store {
	return &Store{collections: make(map[string][]store.Document)}
}

// seedUsers builds the dev/demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; the hardcoded fallbacks are
// only ever used by the in-memory store.
func seedUsers(log *zap.Logger) []domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := make([]domain.UserAccount, 0, 2)
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users = append(users, domain.UserAccount{
			ID:        u.username,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo users, stock and partners so the
// server is usable without a database.
func NewSeeded(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := New()
	now := domain.NewDate(time.Now())

	for _, user := range seedUsers(log.Named("memory-store")) {
		s.mustPut(store.CollectionUsers, user.ID, user)
	}

	rates := map[domain.MeatType]int64{
		domain.MeatChicken:        220,
		domain.MeatCountryChicken: 480,
		domain.MeatMutton:         850,
		domain.MeatBeef:           420,
		domain.MeatFish:           300,
		domain.MeatEggs:           6,
	}
	for _, meat := range domain.MeatTypes {
		s.mustPut(store.CollectionInventory, "inv-"+string(meat), domain.InventoryItem{
			ID:        "inv-" + string(meat),
			Type:      meat,
			Quantity:  domain.NewAmount(decimal.Zero),
			Rate:      domain.NewAmount(decimal.NewFromInt(rates[meat])),
			UpdatedAt: now,
		})
	}

	s.mustPut(store.CollectionCustomers, "cus-walkin", domain.Customer{
		ID:            "cus-walkin",
		Name:          "Walk-in",
		Type:          domain.CustomerRandom,
		PendingAmount: domain.NewAmount(decimal.Zero),
		CreatedAt:     now,
	})
	s.mustPut(store.CollectionSuppliers, "sup-farm", domain.Supplier{
		ID:        "sup-farm",
		Name:      "Green Farm Poultry",
		Debt:      domain.NewAmount(decimal.Zero),
		CreatedAt: now,
	})
	return s
}

func (s *Store) mustPut(collection string, id string, record any) {
	data, err := json.Marshal(record)
	if err != nil {
		panic(fmt.Sprintf("memory: encode %s/%s: %v", collection, id, err))
	}
	s.collections[collection] = append(s.collections[collection], store.Document{ID: id, Data: data})
}

// LoadSnapshot appends every document of a JSON export shaped as
// {"customers": [...], "orders": [...], ...}. Duplicate ids are kept as-is so
// that integrity checks can see them.
func (s *Store) LoadSnapshot(r io.Reader) error {
	var snapshot map[string][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		for i, raw := range snapshot[name] {
			var header struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(raw, &header); err != nil {
				return fmt.Errorf("snapshot %s[%d]: %w: %v", name, i, store.ErrInvalidRecord, err)
			}
			id := strings.TrimSpace(header.ID)
			if id == "" {
				return fmt.Errorf("snapshot %s[%d]: %w: missing id", name, i, store.ErrInvalidRecord)
			}
			data := make(json.RawMessage, len(raw))
			copy(data, raw)
			s.collections[name] = append(s.collections[name], store.Document{ID: id, Data: data})
		}
	}
	return nil
}

// WriteSnapshot writes every collection in the format LoadSnapshot reads.
func (s *Store) WriteSnapshot(w io.Writer) error {
	s.mu.RLock()
	snapshot := make(map[string][]json.RawMessage, len(s.collections))
	for name, docs := range s.collections {
		raws := make([]json.RawMessage, len(docs))
		for i, doc := range docs {
			raws[i] = cloneDocument(doc).Data
		}
		snapshot[name] = raws
	}
	s.mu.RUnlock()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}

func (s *Store) List(_ context.Context, collection string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	result := make([]store.Document, len(docs))
	for i, doc := range docs {
		result[i] = cloneDocument(doc)
	}
	return result, nil
}

func (s *Store) Get(_ context.Context, collection string, id string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(collection, id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	doc := cloneDocument(s.collections[collection][idx])
	return &doc, nil
}

func (s *Store) Insert(_ context.Context, collection string, doc store.Document) error {
	if doc.ID == "" || !json.Valid(doc.Data) {
		return store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(collection, doc.ID) >= 0 {
		return fmt.Errorf("%w: duplicate id %s", store.ErrInvalidRecord, doc.ID)
	}
	s.collections[collection] = append(s.collections[collection], cloneDocument(doc))
	return nil
}

func (s *Store) Merge(_ context.Context, collection string, id string, patch map[string]any) (*store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(collection, id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	merged, err := store.MergeJSON(s.collections[collection][idx].Data, patch)
	if err != nil {
		return nil, err
	}
	s.collections[collection][idx].Data = merged
	doc := cloneDocument(s.collections[collection][idx])
	return &doc, nil
}

func (s *Store) Remove(_ context.Context, collection string, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(collection, id)
	if idx < 0 {
		return false, nil
	}
	docs := s.collections[collection]
	s.collections[collection] = append(docs[:idx:idx], docs[idx+1:]...)
	return true, nil
}

func (s *Store) indexOf(collection string, id string) int {
	for i, doc := range s.collections[collection] {
		if doc.ID == id {
			return i
		}
	}
	return -1
}

func cloneDocument(src store.Document) store.Document {
	data := make(json.RawMessage, len(src.Data))
	copy(data, src.Data)
	return store.Document{ID: src.ID, Data: data}
}

func (s *Store) Snapshot(_ context.Context, collections ...string) (map[string][]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]store.Document, len(collections))
	for _, collection := range collections {
		docs := s.collections[collection]
		copied := make([]store.Document, len(docs))
		for i, doc := range docs {
			copied[i] = cloneDocument(doc)
		}
		result[collection] = copied
	}
	return result, nil
}
