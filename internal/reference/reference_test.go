package reference

import (
	"encoding/json"
	"testing"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		label   string
		want    Field
		wantErr bool
	}{
		{"TITLE", Title, false},
		{"title", Title, false},
		{"B-JOURNAL", Journal, false},
		{"I-PUBLICATION_YEAR", PublicationYear, false},
		{" page_last ", PageLast, false},
		{"PUBLISHER", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseField(tt.label)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseField(%q) expected error, got %v", tt.label, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseField(%q) unexpected error: %v", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("ParseField(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestFieldStringRoundTrip(t *testing.T) {
	for _, f := range AllFields() {
		got, err := ParseField(f.String())
		if err != nil {
			t.Fatalf("ParseField(%q): %v", f.String(), err)
		}
		if got != f {
			t.Errorf("round trip of %v gave %v", f, got)
		}
	}
	if len(AllFields()) != 12 {
		t.Errorf("expected 12 fields, got %d", len(AllFields()))
	}
}

func TestEntityBag(t *testing.T) {
	var bag EntityBag
	if !bag.IsEmpty() {
		t.Fatal("zero bag should be empty")
	}

	bag.Add(Volume, "12", "3")
	bag.Add(Title, "Emotions in storybooks")
	if bag.First(Volume) != "12" {
		t.Errorf("First(Volume) = %q, want 12", bag.First(Volume))
	}
	if bag.Len(Volume) != 2 {
		t.Errorf("Len(Volume) = %d, want 2", bag.Len(Volume))
	}
	if bag.First(DOI) != "" {
		t.Errorf("First(DOI) on empty field = %q", bag.First(DOI))
	}

	fields := bag.Fields()
	if len(fields) != 2 || fields[0] != Title || fields[1] != Volume {
		t.Errorf("Fields() = %v, want [TITLE VOLUME]", fields)
	}

	clone := bag.Clone()
	clone.Set(Volume, "99")
	if bag.First(Volume) != "12" {
		t.Error("Clone shares storage with the original")
	}

	bag.Clear(Volume)
	if bag.Len(Volume) != 0 {
		t.Error("Clear did not remove values")
	}
}

func TestEntityBagJSON(t *testing.T) {
	var bag EntityBag
	bag.Add(DOI, "10.1037/ppm0000185")
	bag.Add(Authors, "Nikolajeva, M.", "Kümmerling-Meibauer, B.")

	data, err := json.Marshal(bag)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"AUTHORS":["Nikolajeva, M.","Kümmerling-Meibauer, B."],"DOI":["10.1037/ppm0000185"]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var decoded EntityBag
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Len(Authors) != 2 || decoded.First(DOI) != "10.1037/ppm0000185" {
		t.Errorf("decoded bag mismatch: %+v", decoded.Fields())
	}

	if err := json.Unmarshal([]byte(`{"PUBLISHER":["x"]}`), &decoded); err == nil {
		t.Error("expected error for unknown field key")
	}
}
