package core

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestRecord_MarshalKeepsColumnOrder(t *testing.T) {
	rec := Record{
		{Name: "zeta", Value: 1.5},
		{Name: "alpha", Value: "x"},
		{Name: "mid \"quoted\"", Value: nil},
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"zeta":1.5,"alpha":"x","mid \"quoted\"":null}`
	if string(raw) != want {
		t.Errorf("got %s, want %s", raw, want)
	}
}

func TestRecord_UnmarshalKeepsColumnOrder(t *testing.T) {
	in := Record{
		{Name: "zeta", Value: 1.5},
		{Name: "alpha", Value: "x"},
		{Name: "nested", Value: nil},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %#v, want %#v", out, in)
	}
}

func TestRecord_UnmarshalInsideResponse(t *testing.T) {
	raw := []byte(`{"row_index":2,"fields":{"b":1,"a":"x"},"anomaly":1,"score":0.7,"explanation":null}`)

	var res DetectionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := Record{{Name: "b", Value: 1.0}, {Name: "a", Value: "x"}}
	if !reflect.DeepEqual(res.Fields, want) {
		t.Errorf("fields = %#v, want %#v", res.Fields, want)
	}
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var out Record
	if err := json.Unmarshal([]byte(`[1,2]`), &out); err == nil {
		t.Error("expected error for array input")
	}
}

func TestRecord_EmptyIsObject(t *testing.T) {
	raw, err := json.Marshal(Record{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("got %s, want {}", raw)
	}
}

func TestTableRow_NonFiniteIsNull(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "v", Type: ColumnNumeric, Cells: []Cell{{Kind: CellNumber, Num: math.Inf(1)}}},
		{Name: "s", Type: ColumnString, Cells: []Cell{{Kind: CellString, Str: "ok"}}},
	}}
	rec := tbl.Row(0)

	if v, ok := rec.Get("v"); !ok || v != nil {
		t.Errorf("v = %v, %v; want nil, true", v, ok)
	}
	if s, _ := rec.Get("s"); s != "ok" {
		t.Errorf("s = %v, want ok", s)
	}
	if _, ok := rec.Get("missing"); ok {
		t.Error("Get reported an unknown field")
	}
}
