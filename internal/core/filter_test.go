package core

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"testing"
)

func rec(pairs ...string) Record {
	cols := make([]string, 0, len(pairs)/2)
	vals := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		cols = append(cols, pairs[i])
		vals = append(vals, pairs[i+1])
	}
	return NewRecord(cols, vals)
}

func TestParseFilterSpec(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    FilterSpec
		wantErr bool
	}{
		{name: "empty string", raw: "", want: FilterSpec{}},
		{name: "whitespace", raw: "  ", want: FilterSpec{}},
		{name: "null", raw: "null", want: FilterSpec{}},
		{name: "empty object", raw: "{}", want: FilterSpec{}},
		{
			name: "single column",
			raw:  `{"City":["Oslo","Rome"]}`,
			want: FilterSpec{"City": {"Oslo", "Rome"}},
		},
		{
			name: "empty accepted list",
			raw:  `{"City":[]}`,
			want: FilterSpec{"City": {}},
		},
		{name: "malformed json", raw: `{"City":`, wantErr: true},
		{name: "array instead of object", raw: `["City"]`, wantErr: true},
		{name: "non-array value", raw: `{"City":"Oslo"}`, wantErr: true},
		{name: "non-string element", raw: `{"Age":[30]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilterSpec(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSpec) {
					t.Fatalf("expected ErrInvalidSpec, got %v", err)
				}
				var se *InvalidSpecError
				if !errors.As(err, &se) || se.Field != "filters" {
					t.Errorf("expected InvalidSpecError for filters, got %#v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseColumnSelection(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ColumnSelection
		wantErr bool
	}{
		{name: "empty string", raw: "", want: ColumnSelection{}},
		{name: "empty array", raw: "[]", want: ColumnSelection{}},
		{name: "ordered", raw: `["b","a"]`, want: ColumnSelection{"b", "a"}},
		{name: "duplicates keep first position", raw: `["a","b","a"]`, want: ColumnSelection{"a", "b"}},
		{name: "object instead of array", raw: `{"a":1}`, wantErr: true},
		{name: "truncated", raw: `["a"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColumnSelection(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSpec) {
					t.Fatalf("expected ErrInvalidSpec, got %v", err)
				}
				var se *InvalidSpecError
				if !errors.As(err, &se) || se.Field != "selectedColumns" {
					t.Errorf("expected InvalidSpecError for selectedColumns, got %#v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestPredicate_Match(t *testing.T) {
	row := rec("City", " Oslo ", "Tier", "gold")

	tests := []struct {
		name   string
		spec   FilterSpec
		policy EmptyListPolicy
		want   bool
	}{
		{name: "empty spec matches everything", spec: FilterSpec{}, want: true},
		{name: "trimmed value accepted", spec: FilterSpec{"City": {"Oslo"}}, want: true},
		{name: "accepted values are not trimmed", spec: FilterSpec{"City": {" Oslo "}}, want: false},
		{name: "case sensitive", spec: FilterSpec{"City": {"oslo"}}, want: false},
		{name: "conjunction all pass", spec: FilterSpec{"City": {"Oslo"}, "Tier": {"gold", "silver"}}, want: true},
		{name: "conjunction one fails", spec: FilterSpec{"City": {"Oslo"}, "Tier": {"silver"}}, want: false},
		{name: "absent column reads as empty", spec: FilterSpec{"Region": {"EU"}}, want: false},
		{name: "absent column accepts empty string", spec: FilterSpec{"Region": {""}}, want: true},
		{name: "empty list ignored by default", spec: FilterSpec{"City": {}}, want: true},
		{name: "empty list rejects under none policy", spec: FilterSpec{"City": {}}, policy: EmptyListMatchesNone, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := tt.spec.Compile(tt.policy)
			if got := pred.Match(row); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicate_ConstraintOrderIsDeterministic(t *testing.T) {
	spec := FilterSpec{"c": {"1"}, "a": {"1"}, "b": {"1"}}
	pred := spec.Compile(EmptyListMatchesAll)

	var order []string
	for _, c := range pred.constraints {
		order = append(order, c.column)
	}
	if !slices.Equal(order, []string{"a", "b", "c"}) {
		t.Errorf("constraint order = %v, want [a b c]", order)
	}
}

func TestColumnSelection_Project(t *testing.T) {
	source := rec("Name", "Ann", "Age", "30", "City", "Oslo")

	t.Run("empty selection passes through", func(t *testing.T) {
		got := ColumnSelection{}.Project(source)
		if !reflect.DeepEqual(got, source) {
			t.Errorf("got %+v, want %+v", got, source)
		}
	})

	t.Run("selection order and subset", func(t *testing.T) {
		got := ColumnSelection{"City", "Name"}.Project(source)
		if !slices.Equal(got.Columns, []string{"City", "Name"}) {
			t.Errorf("Columns = %v", got.Columns)
		}
		if want := map[string]string{"City": "Oslo", "Name": "Ann"}; !maps.Equal(got.Values, want) {
			t.Errorf("Values = %v, want %v", got.Values, want)
		}
	})

	t.Run("missing column becomes empty", func(t *testing.T) {
		got := ColumnSelection{"Name", "Email"}.Project(source)
		if !slices.Equal(got.Columns, []string{"Name", "Email"}) {
			t.Errorf("Columns = %v", got.Columns)
		}
		if !got.Has("Email") || got.Get("Email") != "" {
			t.Errorf("Email should be present and empty, got %+v", got)
		}
	})

	t.Run("values are not trimmed", func(t *testing.T) {
		got := ColumnSelection{"v"}.Project(rec("v", "  x  "))
		if v := got.Get("v"); v != "  x  " {
			t.Errorf("v = %q, want untrimmed value", v)
		}
	})
}
