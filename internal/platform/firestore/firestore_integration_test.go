//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	pconfig "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	pfirestore "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/firestore"
)

type counterEntity struct {
	Label string `firestore:"label"`
	Count int    `firestore:"count"`
}

type repoClassifier interface {
	IsNotFound() bool
	IsConflict() bool
}

func emulatorProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	host := strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST"))
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "uk-test", EmulatorHost: host})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})
	return provider
}

func TestProviderCollectionRoundTrip(t *testing.T) {
	provider := emulatorProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	counters := pfirestore.NewCollection[counterEntity](provider, "counters_"+time.Now().UTC().Format("150405.000000"))

	create := func(label string) error {
		return provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			ref, err := counters.Ref(ctx, "c-1")
			if err != nil {
				return err
			}
			return tx.Create(ref, counterEntity{Label: label, Count: 1})
		})
	}
	if err := create("alpha"); err != nil {
		t.Fatalf("create: %v", err)
	}
	var cls repoClassifier
	if err := create("dup"); !errors.As(err, &cls) || !cls.IsConflict() {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			ref, err := counters.Ref(ctx, "c-1")
			if err != nil {
				return err
			}
			snap, err := tx.Get(ref)
			if err != nil {
				return err
			}
			doc, err := counters.Decode(snap)
			if err != nil {
				return err
			}
			doc.Data.Count++
			return tx.Set(ref, doc.Data)
		}); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	doc, err := counters.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data.Count != 3 || doc.Data.Label != "alpha" {
		t.Fatalf("unexpected document %+v", doc.Data)
	}

	found, err := counters.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("label", "==", "alpha")
	})
	if err != nil || len(found) != 1 || found[0].ID != "c-1" {
		t.Fatalf("query: %v %+v", err, found)
	}

	if _, err := counters.Get(ctx, "missing"); !errors.As(err, &cls) || !cls.IsNotFound() {
		t.Fatalf("expected not found classification, got %v", err)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if err := provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error {
		return nil
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
