package query

import (
	"net/url"
	"testing"
)

func TestSorter_Build(t *testing.T) {
	s := NewSorter().Append("Name").Append("Age", Desc).Append("Created", "")

	got := s.Build()
	want := url.Values{
		"sort[0][field]":     {"Name"},
		"sort[0][direction]": {"asc"},
		"sort[1][field]":     {"Age"},
		"sort[1][direction]": {"desc"},
		"sort[2][field]":     {"Created"},
		"sort[2][direction]": {"asc"},
	}

	assertValues(t, got, want)
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestApplySort_Variants(t *testing.T) {
	tests := []struct {
		name string
		spec SortSpec
		want url.Values
	}{
		{
			name: "builder",
			spec: NewSorter().Append("A", Desc).Append("B"),
			want: url.Values{
				"sort[0][field]":     {"A"},
				"sort[0][direction]": {"desc"},
				"sort[1][field]":     {"B"},
				"sort[1][direction]": {"asc"},
			},
		},
		{
			name: "single field with direction",
			spec: SortField{Field: "A", Direction: Desc},
			want: url.Values{
				"sort[0][field]":     {"A"},
				"sort[0][direction]": {"desc"},
			},
		},
		{
			name: "single field default direction",
			spec: SortField{Field: "A"},
			want: url.Values{
				"sort[0][field]":     {"A"},
				"sort[0][direction]": {"asc"},
			},
		},
		{
			name: "list of mixed items",
			spec: SortList{{Field: "A", Direction: Desc}, {Field: "B"}, {Field: "C", Direction: Asc}},
			want: url.Values{
				"sort[0][field]":     {"A"},
				"sort[0][direction]": {"desc"},
				"sort[1][field]":     {"B"},
				"sort[1][direction]": {"asc"},
				"sort[2][field]":     {"C"},
				"sort[2][direction]": {"asc"},
			},
		},
		{
			name: "bare field names",
			spec: Fields("X", "Y"),
			want: url.Values{
				"sort[0][field]":     {"X"},
				"sort[0][direction]": {"asc"},
				"sort[1][field]":     {"Y"},
				"sort[1][direction]": {"asc"},
			},
		},
		{
			name: "nil spec ignored",
			spec: nil,
			want: url.Values{},
		},
		{
			name: "nil sorter ignored",
			spec: (*Sorter)(nil),
			want: url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplySort(url.Values{}, tt.spec)
			assertValues(t, got, tt.want)
		})
	}
}

func TestApplySort_MergesIntoExisting(t *testing.T) {
	params := url.Values{"view": {"Grid"}}

	got := ApplySort(params, SortField{Field: "Name"})

	if got.Get("view") != "Grid" {
		t.Errorf("existing key lost: %v", got)
	}
	if got.Get("sort[0][field]") != "Name" {
		t.Errorf("sort[0][field] = %q, want Name", got.Get("sort[0][field]"))
	}
}

func TestApplySort_NilParams(t *testing.T) {
	got := ApplySort(nil, SortField{Field: "Name"})
	if got.Get("sort[0][direction]") != "asc" {
		t.Errorf("sort[0][direction] = %q, want asc", got.Get("sort[0][direction]"))
	}
}

func assertValues(t *testing.T, got, want url.Values) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d keys %v, want %d keys %v", len(got), got, len(want), want)
	}
	for key, wantVals := range want {
		gotVals := got[key]
		if len(gotVals) != len(wantVals) {
			t.Errorf("%s = %v, want %v", key, gotVals, wantVals)
			continue
		}
		for i := range wantVals {
			if gotVals[i] != wantVals[i] {
				t.Errorf("%s[%d] = %q, want %q", key, i, gotVals[i], wantVals[i])
			}
		}
	}
}
