package buffer

import (
	"testing"

	"github.com/nanodb-project/nanodb/internal/config"
	"github.com/nanodb-project/nanodb/internal/page"
)

func newTestFile(t *testing.T, name string) *page.File {
	t.Helper()
	mgr, err := page.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f, err := mgr.CreateFile(name, page.TypeHeapTuple, page.DefaultPageSize)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestCacheGetPagePinsAndCaches(t *testing.T) {
	f := newTestFile(t, "t1.tbl")
	no := f.AllocatePage()
	c := New(Config{MaxPages: 8, Policy: config.PolicyLRU})

	p1, err := c.GetPage(f, no, true)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Pinned != 1 {
		t.Fatalf("expected pin count 1, got %d", p1.Pinned)
	}

	p2, err := c.GetPage(f, no, true)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatal("expected second GetPage to return the same cached page")
	}
	if p2.Pinned != 2 {
		t.Fatalf("expected pin count 2 after second get, got %d", p2.Pinned)
	}

	c.UnpinPage(p1)
	c.UnpinPage(p2)
	if p1.Pinned != 0 {
		t.Fatalf("expected pin count 0 after two unpins, got %d", p1.Pinned)
	}
}

func TestCacheEvictsUnpinnedUnderCapacity(t *testing.T) {
	f := newTestFile(t, "t2.tbl")
	c := New(Config{MaxPages: 2, Policy: config.PolicyFIFO})

	no1 := f.AllocatePage()
	p1, err := c.GetPage(f, no1, true)
	if err != nil {
		t.Fatal(err)
	}
	c.UnpinPage(p1)
	no2 := f.AllocatePage()
	if _, err := c.GetPage(f, no2, true); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached pages, got %d", c.Len())
	}

	no3 := f.AllocatePage()
	if _, err := c.GetPage(f, no3, true); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected eviction to keep cache at capacity 2, got %d", c.Len())
	}
}

func TestCacheFlushNotifiesObserver(t *testing.T) {
	f := newTestFile(t, "t3.tbl")
	c := New(Config{MaxPages: 8})

	var notified [][]byte
	c.AddObserver(observerFunc(func(pages []*page.Page) error {
		for _, p := range pages {
			notified = append(notified, append([]byte(nil), p.Data[:4]...))
		}
		return nil
	}))

	no := f.AllocatePage()
	p, err := c.GetPage(f, no, true)
	if err != nil {
		t.Fatal(err)
	}
	p.Touch()
	copy(p.Data, []byte("abcd"))

	if err := c.FlushPage(p); err != nil {
		t.Fatal(err)
	}
	if len(notified) != 1 || string(notified[0]) != "abcd" {
		t.Fatalf("expected observer to see flushed page contents, got %v", notified)
	}
	if p.Dirty {
		t.Fatal("expected page to be clean after flush")
	}
}

type observerFunc func([]*page.Page) error

func (f observerFunc) BeforeWriteDirtyPages(pages []*page.Page) error { return f(pages) }
