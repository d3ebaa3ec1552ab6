package maple

import (
	"github.com/ValentinKolb/rmap/lib/db"
	dbtesting "github.com/ValentinKolb/rmap/lib/db/testing"
	"testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB(1 shard)", func() db.KVDB {
		return NewMapleDB(&DBOptions{NumShards: 1})
	})
}

func Benchmark(t *testing.B) {
	dbtesting.RunKVDBBenchmarks(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}
