package rbac

import "testing"

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "assessment:view", true},
		{"student", "submission:create", true},
		{"student", "result:view-own", true},
		{"student", "assessment:delete", false},
		{"student", "result:view-all", false},
		{"teacher", "assessment:create", true},
		{"teacher", "assessment:delete", true},
		{"teacher", "result:view-all", true},
		{"admin", "assessment:delete", true},
		{"admin", "anything:at-all", true},
		{"", "assessment:view", false},
		{"ghost", "assessment:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestAnyAndAll(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("student", "result:view-all", "result:view-own") {
		t.Error("Any should pass on the second permission")
	}
	if c.All("student", "result:view-own", "result:view-all") {
		t.Error("All should fail on the missing permission")
	}
	if !c.All("admin", "a:b", "c:d") {
		t.Error("wildcard role should pass All")
	}
}

func TestMatchPermPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{"auditor": {"result:*"}})
	if !c.Has("auditor", "result:view-all") {
		t.Error("prefix pattern should match")
	}
	if c.Has("auditor", "assessment:view") {
		t.Error("prefix pattern matched outside its namespace")
	}
}
