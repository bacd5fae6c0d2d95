package adapters

import (
	"testing"
	"time"
)

func TestNewBuilder(t *testing.T) {
	if NewBuilder() == nil {
		t.Fatal("NewBuilder() returned nil")
	}
}

func TestBuilder_BuildReadings_LatestWins(t *testing.T) {
	b := NewBuilder()
	df := &DataFrame{Rows: []Row{
		{FieldEntity: "Indonesia", FieldMetric: "Deaths", FieldValue: 10.0, FieldCategory: "mortality", FieldTime: 2019},
		{FieldEntity: "Indonesia", FieldMetric: "Deaths", FieldValue: 12.0, FieldCategory: "mortality", FieldTime: 2021},
		{FieldEntity: "Indonesia", FieldMetric: "Deaths", FieldValue: 11.0, FieldCategory: "mortality", FieldTime: 2020},
		{FieldEntity: "Malaysia", FieldMetric: "Deaths", FieldValue: "7", FieldTime: "2020"},
	}}

	readings, err := b.BuildReadings(df)
	if err != nil {
		t.Fatalf("BuildReadings() error = %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("len = %d, want 2", len(readings))
	}
	if readings[0].Key() != "Indonesia-Deaths" || readings[0].Value != 12 {
		t.Errorf("readings[0] = %+v, want Indonesia-Deaths 12", readings[0])
	}
	if want := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC); !readings[0].ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", readings[0].ObservedAt, want)
	}
	if readings[1].Value != 7 {
		t.Errorf("string value not coerced: %v", readings[1].Value)
	}
}

func TestBuilder_BuildReadings_Timestamps(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := &Builder{Now: func() time.Time { return fixed }}

	tests := []struct {
		name string
		ts   any
		want time.Time
	}{
		{"rfc3339", "2023-06-01T10:00:00Z", time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"year int", 2018, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"year float", 2017.0, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"unix", int64(1700000000), time.Unix(1700000000, 0).UTC()},
		{"garbage", "not-a-date", fixed},
		{"missing", nil, fixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := Row{FieldEntity: "Vietnam", FieldMetric: "X", FieldValue: 1.0}
			if tt.ts != nil {
				row[FieldTime] = tt.ts
			}
			readings, err := b.BuildReadings(&DataFrame{Rows: []Row{row}})
			if err != nil {
				t.Fatalf("BuildReadings() error = %v", err)
			}
			if !readings[0].ObservedAt.Equal(tt.want) {
				t.Errorf("ObservedAt = %v, want %v", readings[0].ObservedAt, tt.want)
			}
		})
	}
}

func TestBuilder_BuildReadings_SkipsInvalidRows(t *testing.T) {
	b := NewBuilder()
	df := &DataFrame{Rows: []Row{
		{FieldMetric: "Deaths", FieldValue: 1.0},
		{FieldEntity: "Thailand", FieldValue: 1.0},
		{FieldEntity: "Thailand", FieldMetric: "Deaths", FieldValue: "n/a"},
		{FieldEntity: "Thailand", FieldMetric: "Deaths", FieldValue: []int{1}},
	}}
	if _, err := b.BuildReadings(df); err == nil {
		t.Fatal("expected error when no rows are valid")
	}
}

func TestBuilder_BuildReadings_Empty(t *testing.T) {
	b := NewBuilder()
	if _, err := b.BuildReadings(nil); err == nil {
		t.Error("expected error for nil dataframe")
	}
	if _, err := b.BuildReadings(&DataFrame{}); err == nil {
		t.Error("expected error for empty dataframe")
	}
}
