package core

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	goods := []Expense{
		{ID: "x"},
		{ID: "x", Title: Some(strings.Repeat("a", 200))},
		{ID: "x", Title: Some(strings.Repeat("é", 150))},
		{ID: "x", Title: Some(strings.Repeat("é", 200))},
	}
	for i, e := range goods {
		if err := e.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	bads := []Expense{
		{},
		{ID: "  "},
		{ID: "x", Title: Some(strings.Repeat("a", 201))},
		{ID: "x", Title: Some(strings.Repeat("é", 201))},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"b", "a", " ", "b", "c", "a"})
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected tags: %v", got)
	}
}

func TestToggleTag(t *testing.T) {
	e := Expense{ID: "x", TagIDs: []string{"a"}}
	e.ToggleTag("b")
	if !slices.Equal(e.TagIDs, []string{"a", "b"}) {
		t.Fatalf("after add: %v", e.TagIDs)
	}
	e.ToggleTag("a")
	if !slices.Equal(e.TagIDs, []string{"b"}) {
		t.Fatalf("after remove: %v", e.TagIDs)
	}
}

func TestOptionalJSON(t *testing.T) {
	type doc struct {
		Title Optional[string]    `json:"title"`
		Date  Optional[time.Time] `json:"date"`
	}
	var d doc
	if err := json.Unmarshal([]byte(`{"title":"Rent","date":null}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Title.OrElse("") != "Rent" || d.Date.IsSome() {
		t.Fatalf("unexpected decode: %+v", d)
	}
	out, err := json.Marshal(doc{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"title":null,"date":null}` {
		t.Fatalf("unexpected encode: %s", out)
	}
}

func TestNameTaken(t *testing.T) {
	tags := []Tag{{ID: "1", Name: Some("Café")}, {ID: "2"}}
	cases := []struct {
		id, name string
		taken    bool
	}{
		{"", "café", true},
		{"", "CAFÉ", true},
		{"1", "café", false}, // same id may keep its name
		{"1", "Café", false},
		{"", "Cafe", false},
		{"", "", false},
	}
	for i, tc := range cases {
		if got := NameTaken(tags, tc.id, tc.name); got != tc.taken {
			t.Fatalf("case %d: NameTaken(%q, %q) = %v", i, tc.id, tc.name, got)
		}
	}
}
