package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

func TestDecodeEnumSet(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.JobType
	}{
		{"empty", "", nil},
		{"malformed", "FULL_TIME", nil},
		{"not an array", `{"a":1}`, nil},
		{"valid", `["PART_TIME","FULL_TIME"]`, []domain.JobType{domain.JobTypeFullTime, domain.JobTypePartTime}},
		{"keeps unknown stored tags", `["FULL_TIME","GIG"]`, []domain.JobType{domain.JobTypeFullTime, "GIG"}},
		{"skips empty tags", `["","CONTRACT"]`, []domain.JobType{domain.JobTypeContract}},
		{"duplicates collapse", `["CONTRACT","CONTRACT"]`, []domain.JobType{domain.JobTypeContract}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.DecodeEnumSet[domain.JobType](tt.raw).Sorted()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEnumSetEncodeRoundTrip(t *testing.T) {
	s := domain.NewEnumSet(domain.LineBlue, domain.LineRed)
	if got := s.Encode(); got != `["BLUE","RED"]` {
		t.Fatalf("Encode() = %s", got)
	}
	back := domain.DecodeEnumSet[domain.TransitLine](s.Encode())
	if !back.Has(domain.LineBlue) || !back.Has(domain.LineRed) || len(back) != 2 {
		t.Fatalf("round trip lost members: %v", back.Sorted())
	}
	if domain.NewEnumSet[domain.TransitLine]().Encode() != "" {
		t.Fatal("empty set should encode to empty string")
	}
}

func TestEnumSetIntersects(t *testing.T) {
	a := domain.NewEnumSet(domain.LineRed, domain.LineBlue)
	b := domain.NewEnumSet(domain.LineBlue)
	c := domain.NewEnumSet(domain.LineGold)
	if !a.Intersects(b) || !b.Intersects(a) {
		t.Error("expected a and b to intersect")
	}
	if a.Intersects(c) {
		t.Error("expected a and c to be disjoint")
	}
	if a.Intersects(domain.TransitLineSet{}) {
		t.Error("nothing intersects the empty set")
	}
}

func TestEnumSetScan(t *testing.T) {
	var s domain.JobTypeSet
	if err := s.Scan([]byte(`["INTERNSHIP"]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !s.Has(domain.JobTypeInternship) {
		t.Fatalf("expected INTERNSHIP, got %v", s.Sorted())
	}
	if err := s.Scan(nil); err != nil || !s.IsEmpty() {
		t.Fatalf("scan nil should give empty set, got %v (%v)", s.Sorted(), err)
	}
	if err := s.Scan(42); err == nil {
		t.Fatal("expected error for unsupported source")
	}
}

func TestEnumSetJSON(t *testing.T) {
	var payload struct {
		Lines domain.TransitLineSet `json:"lines"`
	}
	if err := json.Unmarshal([]byte(`{"lines":["PINK","NOPE","ORANGE"]}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"lines":["ORANGE","PINK"]}` {
		t.Fatalf("unexpected json %s", out)
	}
}
