package conclist

import (
	"testing"
)

func BenchmarkAddLast(b *testing.B) {
	l := New[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.AddLast(i)
	}
}

func BenchmarkAddRemove(b *testing.B) {
	l := New[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.AddLast(i).Remove()
	}
}

func BenchmarkSnapshot(b *testing.B) {
	l := New[int]()
	for i := 0; i < 1024; i++ {
		l.AddLast(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := 0
		for range l.Snapshot() {
			n++
		}
	}
}

func BenchmarkConcurrentAddLast(b *testing.B) {
	l := New[int]()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.AddLast(1)
		}
	})
}
