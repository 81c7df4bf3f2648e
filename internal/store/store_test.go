package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

type backendFactory struct {
	name string
	open func(t *testing.T) store.Store
}

func backends() []backendFactory {
	return []backendFactory{
		{"memory", func(t *testing.T) store.Store {
			return store.NewMemoryStore()
		}},
		{"sqlite", func(t *testing.T) store.Store {
			s, err := store.NewSQLiteStore(":memory:")
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			return s
		}},
		{"sqlite-file", func(t *testing.T) store.Store {
			s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			return s
		}},
		{"pebble", func(t *testing.T) store.Store {
			s, err := store.NewPebbleStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewPebbleStore: %v", err)
			}
			return s
		}},
		{"pebble-mem", func(t *testing.T) store.Store {
			s, err := store.NewMemPebbleStore()
			if err != nil {
				t.Fatalf("NewMemPebbleStore: %v", err)
			}
			return s
		}},
	}
}

// forEachBackend runs fn as a subtest against every Store implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, s store.Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func TestInsertAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		err := store.Update(ctx, s, func(tx store.Tx) error {
			return tx.Insert([]byte("k1"), []byte("v1"))
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}

		err = store.View(ctx, s, func(tx store.Tx) error {
			got, err := tx.Get([]byte("k1"))
			if err != nil {
				return err
			}
			if string(got) != "v1" {
				t.Errorf("Get(k1) = %q, want %q", got, "v1")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}
	})
}

func TestGetMissingKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		err := store.View(context.Background(), s, func(tx store.Tx) error {
			_, err := tx.Get([]byte("missing"))
			return err
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestInsertOverwrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		for _, v := range []string{"first", "second"} {
			err := store.Update(ctx, s, func(tx store.Tx) error {
				return tx.Insert([]byte("k"), []byte(v))
			})
			if err != nil {
				t.Fatalf("Update(%s): %v", v, err)
			}
		}

		err := store.View(ctx, s, func(tx store.Tx) error {
			got, err := tx.Get([]byte("k"))
			if err != nil {
				return err
			}
			if string(got) != "second" {
				t.Errorf("Get(k) = %q, want %q", got, "second")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}
	})
}

func TestReadYourWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		err := store.Update(context.Background(), s, func(tx store.Tx) error {
			if err := tx.Insert([]byte("k"), []byte("staged")); err != nil {
				return err
			}
			got, err := tx.Get([]byte("k"))
			if err != nil {
				return err
			}
			if string(got) != "staged" {
				t.Errorf("Get inside tx = %q, want %q", got, "staged")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
	})
}

func TestUpdateErrorRollsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := store.Update(ctx, s, func(tx store.Tx) error {
			if err := tx.Insert([]byte("a"), []byte("1")); err != nil {
				return err
			}
			if err := tx.Insert([]byte("b"), []byte("2")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Update error = %v, want boom", err)
		}

		err = store.View(ctx, s, func(tx store.Tx) error {
			for _, k := range []string{"a", "b"} {
				if _, err := tx.Get([]byte(k)); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("Get(%s) error = %v, want ErrNotFound after rollback", k, err)
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}
	})
}

func TestUpdatePanicRollsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic to propagate")
				}
			}()
			_ = store.Update(ctx, s, func(tx store.Tx) error {
				_ = tx.Insert([]byte("p"), []byte("x"))
				panic("mid-operation failure")
			})
		}()

		// The gate must have been released by the rollback.
		err := store.View(ctx, s, func(tx store.Tx) error {
			_, err := tx.Get([]byte("p"))
			return err
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get(p) error = %v, want ErrNotFound", err)
		}
	})
}

func TestFinishedTxRejectsUse(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		tx, err := s.Begin(context.Background())
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if err := tx.Commit(); !errors.Is(err, store.ErrTxDone) {
			t.Errorf("second Commit error = %v, want ErrTxDone", err)
		}
		if err := tx.Rollback(); !errors.Is(err, store.ErrTxDone) {
			t.Errorf("Rollback after Commit error = %v, want ErrTxDone", err)
		}
	})
}

func TestBeginSerializes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		first, err := s.Begin(context.Background())
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if tx, err := s.Begin(ctx); err == nil {
			tx.Rollback()
			t.Fatal("second Begin should block while the first transaction is live")
		}

		if err := first.Rollback(); err != nil {
			t.Fatalf("Rollback: %v", err)
		}

		second, err := s.Begin(context.Background())
		if err != nil {
			t.Fatalf("Begin after release: %v", err)
		}
		second.Rollback()
	})
}

func TestPebbleReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := store.NewPebbleStore(dir)
	if err != nil {
		t.Fatalf("NewPebbleStore: %v", err)
	}
	if err := store.Update(ctx, s, func(tx store.Tx) error {
		return tx.Insert([]byte("durable"), []byte("yes"))
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = store.NewPebbleStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	err = store.View(ctx, s, func(tx store.Tx) error {
		got, err := tx.Get([]byte("durable"))
		if err != nil {
			return err
		}
		if string(got) != "yes" {
			t.Errorf("Get(durable) = %q, want %q", got, "yes")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := store.NewMemoryStore()
	s.Close()
	if _, err := s.Begin(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Begin after Close error = %v, want ErrClosed", err)
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		jobs := store.NewCollection[model.JobID, model.Job]("job", func(id model.JobID) []byte {
			return store.Uint64Key(uint64(id))
		})
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		want := model.Job{
			ID:        7,
			Requester: "alice",
			Price:     1500,
			ProofType: model.ProofZkSTARK,
			Status:    model.StatusOpen,
			CreatedAt: created,
		}

		if err := store.Update(ctx, s, func(tx store.Tx) error {
			return jobs.Insert(tx, want.ID, want)
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		err := store.View(ctx, s, func(tx store.Tx) error {
			got, err := jobs.Get(tx, 7)
			if err != nil {
				return err
			}
			if got.ID != want.ID || got.Requester != want.Requester || got.Price != want.Price ||
				got.ProofType != want.ProofType || got.Status != want.Status {
				t.Errorf("Get(7) = %+v, want %+v", got, want)
			}
			if !got.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
			}
			if got.StartedAt != nil {
				t.Errorf("StartedAt = %v, want nil", got.StartedAt)
			}

			ok, err := jobs.Has(tx, 8)
			if err != nil {
				return err
			}
			if ok {
				t.Error("Has(8) = true, want false")
			}
			_, err = jobs.Get(tx, 8)
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("Get(8) error = %v, want ErrNotFound", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}
	})
}

func TestUint64KeyOrdering(t *testing.T) {
	a, b := store.Uint64Key(255), store.Uint64Key(256)
	if string(a) >= string(b) {
		t.Errorf("Uint64Key(255) should sort before Uint64Key(256)")
	}
}

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		driver string
		path   string
	}{
		{store.DriverMemory, ""},
		{store.DriverSQLite, filepath.Join(dir, "open.db")},
		{store.DriverPebble, filepath.Join(dir, "open-pebble")},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s, err := store.Open(tt.driver, tt.path)
			if err != nil {
				t.Fatalf("Open(%s): %v", tt.driver, err)
			}
			defer s.Close()
			if err := store.Update(context.Background(), s, func(tx store.Tx) error {
				return tx.Insert([]byte("k"), []byte("v"))
			}); err != nil {
				t.Fatalf("Update: %v", err)
			}
		})
	}

	if _, err := store.Open("etcd", ""); err == nil {
		t.Error("Open(etcd) succeeded, want error")
	}
}
