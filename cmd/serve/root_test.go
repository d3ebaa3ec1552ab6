package serve

import (
	"github.com/ValentinKolb/rmap/rpc/common"
	"testing"
)

func TestParseShards(t *testing.T) {
	shards, err := parseShards("100=lstore, 200 = dstore")
	if err != nil {
		t.Fatalf("parseShards failed: %v", err)
	}
	want := []common.ServerShard{
		{ShardID: 100, Type: common.ShardTypeLocalIStore},
		{ShardID: 200, Type: common.ShardTypeRemoteIStore},
	}
	if len(shards) != len(want) {
		t.Fatalf("expected %d shards, got %d", len(want), len(shards))
	}
	for i := range want {
		if shards[i] != want[i] {
			t.Errorf("shard %d: expected %+v, got %+v", i, want[i], shards[i])
		}
	}

	for _, invalid := range []string{"100", "abc=lstore", "100=lockmgr", "100=lstore,100=dstore"} {
		if _, err := parseShards(invalid); err == nil {
			t.Errorf("expected error for %q", invalid)
		}
	}
}

func TestParseClusterMembers(t *testing.T) {
	members, err := parseClusterMembers("node-1=localhost:63001,node-2=localhost:63002")
	if err != nil {
		t.Fatalf("parseClusterMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if _, err := parseClusterMembers("node-1"); err == nil {
		t.Errorf("expected error for member without address")
	}
}
