package db

import "testing"

func TestOpType(t *testing.T) {
	tests := []struct {
		op    Op
		name  string
		write bool
	}{
		{HGetOp("k", "f"), "HGET", false},
		{HSetOp("k", "f", nil), "HSET", true},
		{HSetNXOp("k", "f", nil), "HSETNX", true},
		{HDelOp("k", "f"), "HDEL", true},
		{HExistsOp("k", "f"), "HEXISTS", false},
		{HLenOp("k"), "HLEN", false},
		{IncrByOp("k", 1), "INCRBY", true},
		{GetOp("k"), "GET", false},
		{DeleteOp("k"), "DELETE", true},
		{Op{}, "UNKNOWN", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.Type.String(); got != tt.name {
				t.Errorf("String() = %s, want %s", got, tt.name)
			}
			if got := tt.op.Type.IsWrite(); got != tt.write {
				t.Errorf("IsWrite() = %v, want %v", got, tt.write)
			}
		})
	}
}
