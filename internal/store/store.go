package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"meatledger/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
)

const (
	CollectionCustomers    = "customers"
	CollectionSuppliers    = "suppliers"
	CollectionInventory    = "inventory"
	CollectionOrders       = "orders"
	CollectionTransactions = "transactions"
	CollectionUsers        = "users"
	CollectionAuditLogs    = "audit_logs"
)

// Document is a JSON object stored under a collection. The id lives inside
// the object as well, so a collection may hold several documents with the
// same id when data was imported from elsewhere.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Documents is the backend contract shared by the memory and postgres
// stores. List returns documents in insertion order. Get, Merge and Remove
// address the first document carrying the id.
type Documents interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection string, id string) (*Document, error)
	Insert(ctx context.Context, collection string, doc Document) error
	Merge(ctx context.Context, collection string, id string, patch map[string]any) (*Document, error)
	Remove(ctx context.Context, collection string, id string) (bool, error)
}

type Record interface {
	RecordID() string
}

type normalizer interface {
	Normalize()
}

// Collection is a typed view over one collection of a Documents backend.
// Decoding is the schema boundary: enums are normalized and malformed money
// or date fields are kept as invalid values instead of failing the read.
type Collection[T Record] struct {
	docs Documents
	name string
}

func NewCollection[T Record](docs Documents, name string) *Collection[T] {
	return &Collection[T]{docs: docs, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	docs, err := c.docs.List(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return DecodeAll[T](c.name, docs)
}

func (c *Collection[T]) GetByID(ctx context.Context, id string) (*T, error) {
	doc, err := c.docs.Get(ctx, c.name, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	record, err := decode[T](*doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, doc.ID, err)
	}
	return &record, nil
}

func (c *Collection[T]) Create(ctx context.Context, record T) (*T, error) {
	if n, ok := any(&record).(normalizer); ok {
		n.Normalize()
	}
	id := record.RecordID()
	if id == "" {
		return nil, ErrInvalidRecord
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := c.docs.Insert(ctx, c.name, Document{ID: id, Data: data}); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update merges patch into the stored document. Keys are the JSON field
// names of T; the id cannot be changed.
func (c *Collection[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	if _, ok := patch["id"]; ok {
		return nil, ErrInvalidRecord
	}
	doc, err := c.docs.Merge(ctx, c.name, strings.TrimSpace(id), patch)
	if err != nil {
		return nil, err
	}
	record, err := decode[T](*doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, doc.ID, err)
	}
	return &record, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	return c.docs.Remove(ctx, c.name, strings.TrimSpace(id))
}

// decode turns a stored document into a record. A field whose JSON type does
// not fit the record (a numeric status, an object where items should be a
// list) is left at its zero value and the rest of the document is kept;
// only a document that is not a JSON object fails. The id always comes from
// the document key when the body's own id is unusable.
func decode[T Record](doc Document) (T, error) {
	var record T
	if err := json.Unmarshal(doc.Data, &record); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || !isObject(doc.Data) {
			return record, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	if strings.TrimSpace(record.RecordID()) == "" && doc.ID != "" {
		id, err := json.Marshal(map[string]string{"id": doc.ID})
		if err == nil {
			_ = json.Unmarshal(id, &record)
		}
	}
	if n, ok := any(&record).(normalizer); ok {
		n.Normalize()
	}
	return record, nil
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// MergeJSON overlays patch onto a JSON object, the way a document store
// applies a partial update.
func MergeJSON(data json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	for key, value := range patch {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[key] = encoded
	}
	return json.Marshal(fields)
}

type Repository struct {
	Docs         Documents
	Customers    *Collection[domain.Customer]
	Suppliers    *Collection[domain.Supplier]
	Inventory    *Collection[domain.InventoryItem]
	Orders       *Collection[domain.Order]
	Transactions *Collection[domain.Transaction]
	Users        *Collection[domain.UserAccount]
	AuditLogs    *Collection[domain.AuditLog]
}

func NewRepository(docs Documents) *Repository {
	return &Repository{
		Docs:         docs,
		Customers:    NewCollection[domain.Customer](docs, CollectionCustomers),
		Suppliers:    NewCollection[domain.Supplier](docs, CollectionSuppliers),
		Inventory:    NewCollection[domain.InventoryItem](docs, CollectionInventory),
		Orders:       NewCollection[domain.Order](docs, CollectionOrders),
		Transactions: NewCollection[domain.Transaction](docs, CollectionTransactions),
		Users:        NewCollection[domain.UserAccount](docs, CollectionUsers),
		AuditLogs:    NewCollection[domain.AuditLog](docs, CollectionAuditLogs),
	}
}

// Snapshotter is implemented by backends that can read several collections
// at a single point in time.
type Snapshotter interface {
	Snapshot(ctx context.Context, collections ...string) (map[string][]Document, error)
}

// DecodeAll decodes documents read outside a Collection, e.g. from a
// Snapshotter, applying the same schema boundary as GetAll.
func DecodeAll[T Record](collection string, docs []Document) ([]T, error) {
	records := make([]T, 0, len(docs))
	for _, doc := range docs {
		record, err := decode[T](doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, doc.ID, err)
		}
		records = append(records, record)
	}
	return records, nil
}
