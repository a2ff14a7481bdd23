package main

import (
	"sort"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	var got []string
	for _, c := range root.Commands() {
		got = append(got, c.Name())
	}
	sort.Strings(got)
	want := []string{"migrate", "serve", "sweep", "worker"}
	if len(got) < len(want) {
		t.Fatalf("subcommands: got %v want %v", got, want)
	}
	for _, name := range want {
		idx := sort.SearchStrings(got, name)
		if idx == len(got) || got[idx] != name {
			t.Fatalf("missing subcommand %q in %v", name, got)
		}
	}

	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	if f := serve.Flags().Lookup("with-worker"); f == nil || f.DefValue != "true" {
		t.Fatalf("serve --with-worker flag: %+v", f)
	}
}
