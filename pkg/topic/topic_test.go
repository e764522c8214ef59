package topic

import "testing"

func TestFromStringClassStackName(t *testing.T) {
	cases := []struct {
		raw         string
		isAttribute bool
		instance    string
		stack       string
		leaf        string
	}{
		{"pza/truc/machin", true, "truc", "", "machin"},
		{"pza/truc/a/b/c", true, "truc", "a/b", "c"},
		{"pza/truc/a/b/c", false, "truc", "a/b/c", "c"},
		{"ns1/ns2/pza/truc/a", true, "truc", "", "a"},
	}

	for _, c := range cases {
		got := FromString(c.raw, c.isAttribute)
		if got.Instance != c.instance {
			t.Errorf("FromString(%q).Instance = %q, want %q", c.raw, got.Instance, c.instance)
		}
		if got.ClassStackName() != c.stack {
			t.Errorf("FromString(%q).ClassStackName() = %q, want %q", c.raw, got.ClassStackName(), c.stack)
		}
		if got.LeafName() != c.leaf {
			t.Errorf("FromString(%q).LeafName() = %q, want %q", c.raw, got.LeafName(), c.leaf)
		}
	}
}

func TestRootTopic(t *testing.T) {
	if RootTopic("") != "pza" {
		t.Errorf("RootTopic(\"\") = %q, want pza", RootTopic(""))
	}
	if RootTopic("ns") != "ns/pza" {
		t.Errorf("RootTopic(ns) = %q, want ns/pza", RootTopic("ns"))
	}
}

func TestCmdAttTopic(t *testing.T) {
	if CmdTopic("pza/truc/a") != "pza/truc/a/cmd" {
		t.Errorf("unexpected cmd topic: %q", CmdTopic("pza/truc/a"))
	}
	if AttTopic("pza/truc/a") != "pza/truc/a/att" {
		t.Errorf("unexpected att topic: %q", AttTopic("pza/truc/a"))
	}
}
