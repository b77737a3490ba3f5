package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestArea_SetGetDelete(t *testing.T) {
	db, err := Open("file:kv1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	local := db.Area(AreaLocal)

	if _, ok, err := local.Get(ctx, "session_token"); err != nil || ok {
		t.Fatalf("Get() on empty area = ok %v, err %v", ok, err)
	}

	if err := local.Set(ctx, "session_token", "tok_1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := local.Set(ctx, "session_token", "tok_2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, ok, err := local.Get(ctx, "session_token")
	if err != nil || !ok || got != "tok_2" {
		t.Errorf("Get() = %q, %v, %v; want tok_2", got, ok, err)
	}

	if err := local.Delete(ctx, "session_token"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := local.Get(ctx, "session_token"); ok {
		t.Error("key still present after Delete()")
	}
	if err := local.Delete(ctx, "session_token"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestArea_Isolation(t *testing.T) {
	db, err := Open("file:kv2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	local, session := db.Area(AreaLocal), db.Area(AreaSession)

	if err := local.Set(ctx, "analytics_visitor_id", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := session.Set(ctx, "analytics_session", "s1"); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := session.Get(ctx, "analytics_visitor_id"); ok {
		t.Error("session area sees a local key")
	}

	if err := session.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	keys, err := local.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "analytics_visitor_id" {
		t.Errorf("local keys = %v", keys)
	}
	if keys, _ := session.Keys(ctx); len(keys) != 0 {
		t.Errorf("session keys after Clear() = %v", keys)
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Area(AreaLocal).Set(ctx, "user_location", `{"lat":30.5}`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file missing: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	got, ok, err := db.Area(AreaLocal).Get(ctx, "user_location")
	if err != nil || !ok || got != `{"lat":30.5}` {
		t.Errorf("Get() after reopen = %q, %v, %v", got, ok, err)
	}
}
