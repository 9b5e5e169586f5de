package task

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMarshalRecord_OmitsEmptyFields(t *testing.T) {
	tk := &Task{UUID: uuid.NewString(), ID: NoID}

	data, err := MarshalRecord(tk)
	if err != nil {
		t.Fatalf("MarshalRecord() error = %v", err)
	}
	if got := string(data); got != "{}\n" {
		t.Errorf("MarshalRecord() = %q, want %q", got, "{}\n")
	}
}

func TestMarshalRecord_Layout(t *testing.T) {
	created := time.Date(2016, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	dep := "0b8a2c4e-5d3f-4a7b-9c1d-2e3f4a5b6c7d"

	tk := &Task{UUID: uuid.NewString(), Text: "buy <milk> & ünïcode", DateCreated: &created}
	if err := tk.Tags.Add("home"); err != nil {
		t.Fatal(err)
	}
	if err := tk.Dependencies.Add(dep); err != nil {
		t.Fatal(err)
	}
	tk.Extra = map[string]any{"project": "chores"}

	data, err := MarshalRecord(tk)
	if err != nil {
		t.Fatalf("MarshalRecord() error = %v", err)
	}

	want := `{
    "text": "buy <milk> & ünïcode",
    "tags": [
        "home"
    ],
    "depends": [
        "` + dep + `"
    ],
    "extra": {
        "project": "chores"
    },
    "date_created": "2016-03-01T11:00:00Z"
}
`
	if string(data) != want {
		t.Errorf("MarshalRecord() =\n%s\nwant\n%s", data, want)
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	due := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	tk := New()
	tk.Text = "line one\nline two"
	tk.DateDue = &due
	for _, tag := range []string{"b", "a"} {
		if err := tk.Tags.Add(tag); err != nil {
			t.Fatal(err)
		}
	}

	data, err := MarshalRecord(tk)
	if err != nil {
		t.Fatalf("MarshalRecord() error = %v", err)
	}
	got, err := UnmarshalRecord(tk.UUID, data)
	if err != nil {
		t.Fatalf("UnmarshalRecord() error = %v", err)
	}

	if got.UUID != tk.UUID || got.Text != tk.Text {
		t.Errorf("round trip = %s %q, want %s %q", got.UUID, got.Text, tk.UUID, tk.Text)
	}
	if !got.DateDue.Equal(due) {
		t.Errorf("DateDue = %v, want %v", got.DateDue, due)
	}
	if !got.DateCreated.Equal(*tk.DateCreated) {
		t.Errorf("DateCreated = %v, want %v", got.DateCreated, tk.DateCreated)
	}
	if items := got.Tags.Items(); len(items) != 2 || items[0] != "b" {
		t.Errorf("Tags = %v, want [b a]", items)
	}
	if !got.Stored() {
		t.Error("decoded task Stored() = false, want true")
	}
	if got.HasID() {
		t.Error("decoded task has a short ID")
	}
}

func TestUnmarshalRecord_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "not json", data: "{", want: "failed to decode"},
		{name: "bad tag", data: `{"tags": ["a b"]}`, want: "invalid tag name"},
		{name: "bad dependency", data: `{"depends": ["nope"]}`, want: "invalid dependency id"},
		{name: "bad date", data: `{"date_due": "yesterday"}`, want: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRecord(uuid.NewString(), []byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("UnmarshalRecord() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestUnmarshalRecord_LegacyExtra(t *testing.T) {
	got, err := UnmarshalRecord(uuid.NewString(), []byte(`{"tw_extra": {"project": "x"}}`))
	if err != nil {
		t.Fatalf("UnmarshalRecord() error = %v", err)
	}
	if got.Extra["project"] != "x" {
		t.Errorf("Extra = %v, want project=x", got.Extra)
	}
}
