package migrate

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "two statements",
			script: "create table a(x int);\ncreate table b(y int);",
			want:   []string{"create table a(x int)", "create table b(y int)"},
		},
		{
			name:   "semicolon inside string literal",
			script: "insert into t(name) values ('a;b');",
			want:   []string{"insert into t(name) values ('a;b')"},
		},
		{
			name:   "trailing fragment without semicolon",
			script: "drop table a",
			want:   []string{"drop table a"},
		},
		{
			name:   "blank fragments dropped",
			script: " ;\n;\ncreate index i on t(x);",
			want:   []string{"create index i on t(x)"},
		},
	}
	for _, tc := range cases {
		got := SplitStatements(tc.script)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.name, got, tc.want)
		}
	}
}

func TestListSQLOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_create_refresh_tokens.up.sql",
		"0001_create_users.up.sql",
		"0001_create_users.down.sql",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := listSQL(dir, upSuffix)
	if err != nil {
		t.Fatalf("listSQL: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.name)
	}
	want := []string{"0001_create_users.up.sql", "0002_create_refresh_tokens.up.sql"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestListSQLMissingDirIsEmpty(t *testing.T) {
	files, err := listSQL(filepath.Join(t.TempDir(), "absent"), upSuffix)
	if err != nil {
		t.Fatalf("listSQL: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}
