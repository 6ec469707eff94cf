package store

import (
	"context"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/uluk20-22520/uluk-site/internal/platform/firestore"
)

// Firestore stores each key as a document {value: bytes} in one collection.
type Firestore struct {
	provider   *pfirestore.Provider
	collection string
}

type kvDoc struct {
	Value []byte `firestore:"value"`
}

// NewFirestore returns a store backed by the provider's client.
func NewFirestore(provider *pfirestore.Provider, collection string) *Firestore {
	return &Firestore{provider: provider, collection: collection}
}

func (f *Firestore) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	client, err := f.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(f.collection).Doc(key), nil
}

// Get implements Store.
func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	ref, err := f.doc(ctx, key)
	if err != nil {
		return nil, wrap("get", key, err, true)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, f.classify("get", key, err)
	}
	var doc kvDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, wrap("get", key, err, false)
	}
	return doc.Value, nil
}

// Put implements Store.
func (f *Firestore) Put(ctx context.Context, key string, value []byte) error {
	ref, err := f.doc(ctx, key)
	if err != nil {
		return wrap("put", key, err, true)
	}
	if _, err := ref.Set(ctx, kvDoc{Value: value}); err != nil {
		return f.classify("put", key, err)
	}
	return nil
}

// Delete implements Store.
func (f *Firestore) Delete(ctx context.Context, key string) error {
	ref, err := f.doc(ctx, key)
	if err != nil {
		return wrap("delete", key, err, true)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return f.classify("delete", key, err)
	}
	return nil
}

// Close releases the provider.
func (f *Firestore) Close() error {
	return f.provider.Close()
}

func (f *Firestore) classify(op, key string, err error) error {
	switch pfirestore.Classify(err) {
	case pfirestore.KindNotFound:
		return &Error{Op: op, Key: key, Err: err, notFound: true}
	case pfirestore.KindCanceled:
		return err
	case pfirestore.KindUnavailable:
		return wrap(op, key, err, true)
	}
	return wrap(op, key, err, false)
}
