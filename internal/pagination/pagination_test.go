package pagination

import "testing"

func TestPageRequestDefaults(t *testing.T) {
	var p PageRequest
	p.Defaults()

	if p.Page != 1 || p.PageSize != 20 || p.Sort != SortNewest {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if p.Offset() != 0 {
		t.Errorf("offset = %d, want 0", p.Offset())
	}
}

func TestPageRequestOffsetAndOrder(t *testing.T) {
	p := PageRequest{Page: 3, PageSize: 10, Sort: SortOldest}

	if p.Offset() != 20 {
		t.Errorf("offset = %d, want 20", p.Offset())
	}
	if got := p.OrderBy("date"); got != "date ASC, id ASC" {
		t.Errorf("order = %q", got)
	}

	p.Sort = SortNewest
	if got := p.OrderBy("date"); got != "date DESC, id DESC" {
		t.Errorf("order = %q", got)
	}
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[int](nil, 1, 20, 41)

	if resp.TotalPages != 3 {
		t.Errorf("total pages = %d, want 3", resp.TotalPages)
	}
	if resp.Data == nil || len(resp.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %v", resp.Data)
	}
}
