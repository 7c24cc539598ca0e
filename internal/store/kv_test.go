package store

import (
	"path/filepath"
	"testing"
)

func TestKVRoundTrip(t *testing.T) {
	kv, err := OpenKV(filepath.Join(t.TempDir(), "chloe.db"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	defer kv.Close()

	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := kv.Set(keyConversations, `[{"id":"conv-1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(keyConversations, `[{"id":"conv-2"}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := kv.Get(keyConversations)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != `[{"id":"conv-2"}]` {
		t.Fatalf("value = %q", value)
	}

	if err := kv.Delete(keyConversations); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(keyConversations); ok {
		t.Fatalf("expected key to be gone")
	}
}
