package db

import (
	"testing"
	"testing/fstest"
)

func TestUpMigrationsOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_outbox.up.sql":  {Data: []byte("SELECT 2")},
		"0001_init.up.sql":    {Data: []byte("SELECT 1")},
		"0001_init.down.sql":  {Data: []byte("SELECT -1")},
		"README.md":           {Data: []byte("docs")},
		"seed/0003.up.sql":    {Data: []byte("nested is ignored")},
		"0010_indexes.up.sql": {Data: []byte("SELECT 10")},
	}

	got, err := UpMigrations(fsys)
	if err != nil {
		t.Fatalf("UpMigrations: %v", err)
	}

	want := []string{"0001_init.up.sql", "0002_outbox.up.sql", "0010_indexes.up.sql"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
