package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestChunkRange(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		chunkSize int
		want      [][2]int
	}{
		{name: "even split", total: 6, chunkSize: 2, want: [][2]int{{0, 2}, {2, 4}, {4, 6}}},
		{name: "trailing partial", total: 5, chunkSize: 2, want: [][2]int{{0, 2}, {2, 4}, {4, 5}}},
		{name: "single chunk", total: 3, chunkSize: 10, want: [][2]int{{0, 3}}},
		{name: "zero chunk size covers all", total: 4, chunkSize: 0, want: [][2]int{{0, 4}}},
		{name: "empty", total: 0, chunkSize: 2, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			err := ChunkRange(tt.total, tt.chunkSize, func(start, end int) error {
				got = append(got, [2]int{start, end})
				return nil
			})
			if err != nil {
				t.Fatalf("ChunkRange: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("chunks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkRangeStopsOnError(t *testing.T) {
	want := errors.New("insert failed")
	calls := 0
	err := ChunkRange(10, 3, func(start, end int) error {
		calls++
		if calls == 2 {
			return want
		}
		return nil
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
