package utils

import (
	"reflect"
	"testing"
)

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"7", 0, 7},
		{"-3", 0, -3},
		{"", 9, 9},
		{"abc", 9, 9},
		{"1.5", 9, 9},
	}
	for _, c := range cases {
		if got := AtoiDefault(c.in, c.def); got != c.want {
			t.Errorf("AtoiDefault(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, total := Paginate(items, 0, 2)
	if !reflect.DeepEqual(page, []int{1, 2}) || total != 3 {
		t.Fatalf("page 0 = %v, %d", page, total)
	}

	page, total = Paginate(items, 2, 2)
	if !reflect.DeepEqual(page, []int{5}) || total != 3 {
		t.Fatalf("last page = %v, %d", page, total)
	}

	page, total = Paginate(items, 3, 2)
	if page != nil || total != 3 {
		t.Fatalf("out-of-range page = %v, %d", page, total)
	}

	page, total = Paginate(items, -1, 2)
	if page != nil || total != 3 {
		t.Fatalf("negative page = %v, %d", page, total)
	}

	page, total = Paginate([]int{}, 0, 2)
	if page != nil || total != 0 {
		t.Fatalf("empty input = %v, %d", page, total)
	}

	page, total = Paginate(items, 0, 0)
	if page != nil || total != 0 {
		t.Fatalf("zero size = %v, %d", page, total)
	}
}
