package domain

import (
	"encoding/json"
	"testing"
)

func TestParseRole_Normalization(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{"  ADMIN ", RoleAdmin},
		{"partner", RolePartner},
		{"PARTNER", RolePartner},
		{"user", RoleEndUser},
		{"customer", RoleEndUser},
		{"", RoleEndUser},
	}
	for _, c := range cases {
		if got := ParseRole(c.in); got != c.want {
			t.Errorf("ParseRole(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRole_IsEndUser(t *testing.T) {
	if RoleAdmin.IsEndUser() || RolePartner.IsEndUser() {
		t.Fatal("admin/partner must not count as end-users")
	}
	if !RoleEndUser.IsEndUser() {
		t.Fatal("user role must count as end-user")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("published").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestSubmission_TargetIDs_RoundTrip(t *testing.T) {
	var s Submission
	if got := s.TargetIDs(); got != nil {
		t.Fatalf("empty column should decode to nil, got %v", got)
	}

	s.SetTargetIDs([]string{"u1", "u2", "u1"})
	got := s.TargetIDs()
	if len(got) != 3 || got[0] != "u1" || got[1] != "u2" || got[2] != "u1" {
		t.Fatalf("order (and duplicates) must be preserved, got %v", got)
	}

	s.SetTargetIDs(nil)
	if string(s.TargetUserIDs) != "[]" {
		t.Fatalf("nil should encode as empty array, got %s", s.TargetUserIDs)
	}
}

func TestSubmission_WireFieldNames(t *testing.T) {
	sub := Submission{ID: "s1", ModelKey: "widget_123456", PicPath: "widget"}
	raw, err := json.Marshal(&sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Historical names the consumer app depends on.
	for _, key := range []string{"submissionId", "modelKey", "picPathh", "pushedToApp", "targetUserIds"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("submission document missing wire field %q", key)
		}
	}
}

func TestAssignment_WireFieldNames(t *testing.T) {
	a := Assignment{ModelKey: "widget_123456", Rating: "0.0", Answer: AnswerPending}
	raw, err := json.Marshal(&a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["MName"] != "widget_123456" {
		t.Errorf("assignment must expose model key as MName, got %v", doc)
	}
	if _, ok := doc["Rating"]; !ok {
		t.Error("assignment must keep capitalized Rating wire field")
	}
}

func TestModel_WireShape(t *testing.T) {
	m := Model{ModelKey: "k1", Name: "Widget", Data: ModelCounters{Sent: 5, Rating: "4.5"}}
	raw, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc struct {
		ModelNamee string `json:"modelNamee"`
		Data       struct {
			Sent   int    `json:"sent"`
			Rating string `json:"rating"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ModelNamee != "k1" || doc.Data.Sent != 5 || doc.Data.Rating != "4.5" {
		t.Fatalf("unexpected wire shape: %s", raw)
	}
}
