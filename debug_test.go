package raytrace

import "testing"

func TestDebugRecordIsBoxObject(t *testing.T) {
	r := DebugRecord{ObjectID: 3}
	if !r.IsBoxObject(10) {
		t.Error("ObjectID 3 with 10 boxes should be a box object")
	}
	if r.IsBoxObject(2) {
		t.Error("ObjectID 3 with 2 boxes should be a triangle object")
	}
}

func TestDebugRecordTriangleIndex(t *testing.T) {
	r := DebugRecord{ObjectID: 12}
	if got := r.TriangleIndex(10); got != 2 {
		t.Errorf("TriangleIndex(10) = %d, want 2", got)
	}
}
