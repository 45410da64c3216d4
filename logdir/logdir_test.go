// Copyright (c) 2025 BVK Chaitanya

package logdir

import "testing"

func TestBackend(t *testing.T) {
	b, err := New(t.TempDir(), "logdirtest")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if _, err := b.Write([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}
}
