package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Snapshot is a decoded document together with its id and write times.
type Snapshot[T any] struct {
	ID        string
	Data      T
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Collection gives typed access to one top-level collection. Writes go through
// transactions on the Provider; Collection only reads and builds references.
type Collection[T any] struct {
	provider *Provider
	name     string
}

func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.Trim(name, "/ ")}
}

// Ref returns the document reference for id inside the collection.
func (c *Collection[T]) Ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	coll, err := c.Coll(ctx)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, WrapError(c.name+".ref", errors.New("document id is empty"))
	}
	return coll.Doc(id), nil
}

// Coll returns the raw collection reference, for aggregation queries.
func (c *Collection[T]) Coll(ctx context.Context) (*firestore.CollectionRef, error) {
	if c == nil || c.provider == nil {
		return nil, errors.New("firestore: collection has no provider")
	}
	if c.name == "" {
		return nil, errors.New("firestore: collection name is empty")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, WrapError(c.name+".client", err)
	}
	return client.Collection(c.name), nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (Snapshot[T], error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return Snapshot[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Snapshot[T]{}, WrapError(c.name+".get", err)
	}
	return c.Decode(snap)
}

// Query runs the query produced by shape against the collection and decodes every result.
func (c *Collection[T]) Query(ctx context.Context, shape func(firestore.Query) firestore.Query) ([]Snapshot[T], error) {
	coll, err := c.Coll(ctx)
	if err != nil {
		return nil, err
	}
	q := coll.Query
	if shape != nil {
		q = shape(q)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Snapshot[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.name+".query", err)
		}
		doc, err := c.Decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
}

// Decode converts a snapshot read inside or outside a transaction.
func (c *Collection[T]) Decode(snap *firestore.DocumentSnapshot) (Snapshot[T], error) {
	if snap == nil || !snap.Exists() {
		return Snapshot[T]{}, NotFoundError(c.name+".decode", "document does not exist")
	}
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Snapshot[T]{}, WrapError(c.name+".decode", fmt.Errorf("%s/%s: %w", c.name, snap.Ref.ID, err))
	}
	return Snapshot[T]{
		ID:        snap.Ref.ID,
		Data:      data,
		CreatedAt: snap.CreateTime,
		UpdatedAt: snap.UpdateTime,
	}, nil
}
